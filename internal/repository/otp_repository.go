package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/otp-auth/internal/models"
)

// ErrOTPNotFound возвращается, когда активного кода нет.
var ErrOTPNotFound = errors.New("otp not found")

// CreateOTPParams данные нового одноразового кода. Хранится только хеш.
type CreateOTPParams struct {
	Identifier string
	Channel    models.Channel
	Purpose    models.Purpose
	CodeHash   string
	ExpiresAt  time.Time
	AccountID  *uuid.UUID
}

// OTPRepository отвечает за таблицу otp_codes.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create сохраняет новый код.
func (r *OTPRepository) Create(ctx context.Context, params CreateOTPParams) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	query := `
		INSERT INTO otp_codes (identifier, channel, purpose, code_hash, expires_at, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, identifier, channel, purpose, code_hash, expires_at, consumed_at, created_at, account_id
	`
	if err := r.db.GetContext(
		ctx, &code, query,
		params.Identifier, params.Channel, params.Purpose, params.CodeHash, params.ExpiresAt, params.AccountID,
	); err != nil {
		return nil, fmt.Errorf("otp repository: create %w", err)
	}

	return &code, nil
}

// FindLatestActive возвращает самый свежий неиспользованный и неистёкший код
// для пары идентификатор/назначение. Более старые активные коды игнорируются.
func (r *OTPRepository) FindLatestActive(ctx context.Context, identifier string, purpose models.Purpose, now time.Time) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	query := `
		SELECT id, identifier, channel, purpose, code_hash, expires_at, consumed_at, created_at, account_id
		FROM otp_codes
		WHERE identifier = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &code, query, identifier, purpose, now); err != nil {
		if isNoRows(err) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: find latest active %w", err)
	}

	return &code, nil
}

// MarkConsumed атомарно помечает код использованным. Возвращает false,
// если код уже был использован другим запросом.
func (r *OTPRepository) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("otp repository: mark consumed %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("otp repository: mark consumed rows %w", err)
	}

	return affected == 1, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
