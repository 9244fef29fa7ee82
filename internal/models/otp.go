package models

import (
	"time"

	"github.com/google/uuid"
)

// OneTimeCode хранит выпущенный одноразовый код.
// Сам код никогда не сохраняется, только его HMAC.
type OneTimeCode struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Identifier string     `db:"identifier" json:"identifier"`
	Channel    Channel    `db:"channel" json:"channel"`
	Purpose    Purpose    `db:"purpose" json:"purpose"`
	CodeHash   string     `db:"code_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	AccountID  *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
}

// IsActive проверяет, что код не использован и не истёк на момент now.
func (c *OneTimeCode) IsActive(now time.Time) bool {
	return c.ConsumedAt == nil && c.ExpiresAt.After(now)
}
