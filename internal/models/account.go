package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact идентификатор пользователя вместе с каналом, к которому он относится.
type Contact struct {
	Channel Channel
	Value   string
}

// EmailContact создаёт контакт для канала email.
func EmailContact(email string) Contact {
	return Contact{Channel: ChannelEmail, Value: email}
}

// PhoneContact создаёт контакт для канала phone.
func PhoneContact(phone string) Contact {
	return Contact{Channel: ChannelPhone, Value: phone}
}

// Account описывает учётную запись пользователя.
// Хотя бы один из Email/Phone всегда заполнен.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        *string   `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// HasPassword сообщает, задан ли у аккаунта пароль.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
