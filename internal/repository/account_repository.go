package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/repository/common"
)

var (
	// ErrAccountNotFound возвращается, когда аккаунт не найден.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists возвращается при нарушении уникальности email или телефона.
	ErrAccountExists = errors.New("account already exists")
)

// CreateAccountParams данные для создания аккаунта. PasswordHash может быть nil
// для аккаунтов, созданных через OTP без пароля.
type CreateAccountParams struct {
	Contact      models.Contact
	PasswordHash *string
}

// AccountRepository отвечает за таблицу accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository создаёт экземпляр репозитория.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail возвращает аккаунт по email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return common.GetByField[models.Account](ctx, r.db, "accounts", "email", email, ErrAccountNotFound)
}

// FindByPhone возвращает аккаунт по телефону.
func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return common.GetByField[models.Account](ctx, r.db, "accounts", "phone", phone, ErrAccountNotFound)
}

// FindByID возвращает аккаунт по идентификатору.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return common.GetByField[models.Account](ctx, r.db, "accounts", "id", id, ErrAccountNotFound)
}

// Create создаёт аккаунт с одним контактом.
func (r *AccountRepository) Create(ctx context.Context, params CreateAccountParams) (*models.Account, error) {
	var email, phone *string
	value := params.Contact.Value
	switch params.Contact.Channel {
	case models.ChannelEmail:
		email = &value
	case models.ChannelPhone:
		phone = &value
	default:
		return nil, fmt.Errorf("account repository: create: unknown channel %q", params.Contact.Channel)
	}

	var account models.Account
	query := `
		INSERT INTO accounts (email, phone, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, phone, password_hash, created_at
	`
	if err := r.db.GetContext(ctx, &account, query, email, phone, params.PasswordHash); err != nil {
		if common.IsUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("account repository: create %w", err)
	}

	return &account, nil
}

// UpdatePassword заменяет хеш пароля и возвращает обновлённый аккаунт.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (*models.Account, error) {
	var account models.Account
	query := `
		UPDATE accounts SET password_hash = $2
		WHERE id = $1
		RETURNING id, email, phone, password_hash, created_at
	`
	if err := r.db.GetContext(ctx, &account, query, id, passwordHash); err != nil {
		if isNoRows(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account repository: update password %w", err)
	}

	return &account, nil
}
