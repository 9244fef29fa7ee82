package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/repository"
)

// ActionRepository описывает зависимости ActionService от хранилища.
type ActionRepository interface {
	Create(ctx context.Context, action *models.Action) error
}

// ActionService ведёт журнал действий аутентифицированных пользователей.
type ActionService struct {
	repo ActionRepository
}

// NewActionService создаёт сервис журнала действий.
func NewActionService(repo ActionRepository) *ActionService {
	return &ActionService{repo: repo}
}

// CreateAction сохраняет действие от имени аккаунта.
func (s *ActionService) CreateAction(ctx context.Context, accountID uuid.UUID, actionType string, payload json.RawMessage) (*models.Action, error) {
	actionType = strings.TrimSpace(actionType)
	if actionType == "" {
		return nil, apperror.Validation("тип действия обязателен")
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return nil, apperror.Validation("payload должен быть корректным JSON")
	}

	action := &models.Action{
		AccountID: accountID,
		Type:      actionType,
		Payload:   payload,
	}
	if err := s.repo.Create(ctx, action); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, apperror.ErrAccountNotFound
		}
		return nil, apperror.Internal(err, "не удалось сохранить действие")
	}

	return action, nil
}
