package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/otp-auth/internal/http/middleware"
	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/validation"
)

// ContactRequest поля контакта в теле запроса. Должно быть задано ровно одно.
type ContactRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Contact нормализует и проверяет контакт.
func (r ContactRequest) Contact() (models.Contact, error) {
	hasEmail := r.Email != nil && *r.Email != ""
	hasPhone := r.Phone != nil && *r.Phone != ""
	if hasEmail == hasPhone {
		return models.Contact{}, apperror.Validation("укажите либо email, либо телефон")
	}

	if hasEmail {
		email := validation.NormalizeEmail(*r.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return models.Contact{}, apperror.Validation(err.Error())
		}
		return models.EmailContact(email), nil
	}

	phone := validation.NormalizePhone(*r.Phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return models.Contact{}, apperror.Validation(err.Error())
	}
	return models.PhoneContact(phone), nil
}

// CurrentAccountID извлекает идентификатор аккаунта, положенный AuthMiddleware.
func CurrentAccountID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextAccountIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	accountID, ok := raw.(uuid.UUID)
	if !ok || accountID == uuid.Nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return accountID, nil
}

// BindJSON разбирает тело запроса и превращает ошибку в VALIDATION_ERROR.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.Wrap(err, apperror.ErrCodeValidation, "тело запроса слишком большое")
		}
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса")
	}
	return nil
}

// ValidatePassword проверяет пароль и возвращает ошибку валидации.
func ValidatePassword(password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return apperror.Validation(err.Error())
	}
	return nil
}
