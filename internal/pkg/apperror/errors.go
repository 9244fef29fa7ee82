package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeAuth       ErrorCode = "AUTH_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeConflict   ErrorCode = "CONFLICT"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"

	// ErrCodeTooManyRequests выставляется транспортным ограничителем запросов, не ядром.
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с
// сентинелами даже после Wrap.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Internal оборачивает ошибку хранилища или доставки без пути восстановления.
func Internal(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}

// Validation возвращает ошибку некорректного ввода.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeAuth:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// KindOf возвращает код ошибки; всё, что не AppError, считается внутренней ошибкой.
func KindOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

var (
	ErrInvalidCredentials = New(ErrCodeAuth, "неверные учетные данные")
	ErrInvalidOTP         = New(ErrCodeAuth, "неверный или просроченный код")
	ErrInvalidToken       = New(ErrCodeAuth, "токен невалиден")
	ErrUnauthorized       = New(ErrCodeAuth, "требуется авторизация")
	ErrEmailTaken         = New(ErrCodeConflict, "email уже зарегистрирован")
	ErrAccountExists      = New(ErrCodeConflict, "аккаунт уже существует")
	ErrAccountNotFound    = New(ErrCodeNotFound, "аккаунт не найден")
	ErrRouteNotFound      = New(ErrCodeNotFound, "маршрут не найден")
	ErrTooManyRequests    = New(ErrCodeTooManyRequests, "слишком много запросов, попробуйте позже")
)
