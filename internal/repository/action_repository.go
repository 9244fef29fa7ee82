package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/repository/common"
)

// ActionRepository отвечает за журнал действий пользователей.
type ActionRepository struct {
	db *sqlx.DB
}

// NewActionRepository создаёт экземпляр репозитория.
func NewActionRepository(db *sqlx.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create сохраняет действие и заполняет ID и CreatedAt.
func (r *ActionRepository) Create(ctx context.Context, action *models.Action) error {
	// jsonb принимает текст; []byte драйвер отправил бы как bytea.
	var payload *string
	if len(action.Payload) > 0 {
		s := string(action.Payload)
		payload = &s
	}

	query := `
		INSERT INTO actions (account_id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, action.AccountID, action.Type, payload).
		Scan(&action.ID, &action.CreatedAt); err != nil {
		if common.IsForeignKeyViolation(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("action repository: create %w", err)
	}

	return nil
}
