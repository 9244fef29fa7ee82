package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/metrics"
	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/repository"
)

const (
	DefaultOTPLength = 6
	DefaultOTPTTL    = 5 * time.Minute
)

// OTPRepository описывает зависимости OTPService от хранилища кодов.
// MarkConsumed обязан быть атомарным условным обновлением.
type OTPRepository interface {
	Create(ctx context.Context, params repository.CreateOTPParams) (*models.OneTimeCode, error)
	FindLatestActive(ctx context.Context, identifier string, purpose models.Purpose, now time.Time) (*models.OneTimeCode, error)
	MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// OTPConfig параметры выпуска кодов.
type OTPConfig struct {
	Secret string
	TTL    time.Duration
	Length int
}

// RequestOTPInput данные для выпуска кода.
type RequestOTPInput struct {
	Contact   models.Contact
	Purpose   models.Purpose
	AccountID *uuid.UUID
}

// OTPResult выпущенный код в открытом виде. Повторно получить его нельзя.
type OTPResult struct {
	Code      string
	ExpiresAt time.Time
}

// OTPService выпускает и проверяет одноразовые коды.
type OTPService struct {
	repo   OTPRepository
	secret []byte
	ttl    time.Duration
	length int
	max    *big.Int

	now  func() time.Time
	rand io.Reader
}

// NewOTPService создаёт сервис одноразовых кодов.
func NewOTPService(repo OTPRepository, cfg OTPConfig) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultOTPTTL
	}
	if cfg.Length <= 0 {
		cfg.Length = DefaultOTPLength
	}

	return &OTPService{
		repo:   repo,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		length: cfg.Length,
		max:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.Length)), nil),
		now:    time.Now,
		rand:   rand.Reader,
	}
}

// RequestOTP генерирует код, сохраняет его хеш и возвращает код вызывающему.
// Ранее выпущенные коды не отзываются, они перестают быть последними.
func (s *OTPService) RequestOTP(ctx context.Context, in RequestOTPInput) (*OTPResult, error) {
	code, err := s.generateCode()
	if err != nil {
		return nil, apperror.Internal(err, "не удалось сгенерировать код")
	}

	expiresAt := s.now().Add(s.ttl)
	if _, err := s.repo.Create(ctx, repository.CreateOTPParams{
		Identifier: in.Contact.Value,
		Channel:    in.Contact.Channel,
		Purpose:    in.Purpose,
		CodeHash:   s.hashCode(code),
		ExpiresAt:  expiresAt,
		AccountID:  in.AccountID,
	}); err != nil {
		return nil, apperror.Internal(err, "не удалось сохранить код")
	}

	metrics.OTPIssued.WithLabelValues(string(in.Purpose), string(in.Contact.Channel)).Inc()

	return &OTPResult{Code: code, ExpiresAt: expiresAt}, nil
}

// VerifyOTP проверяет код и помечает запись использованной.
// Отсутствие кода, неверный код и проигранная гонка дают одну и ту же ошибку.
func (s *OTPService) VerifyOTP(ctx context.Context, identifier string, purpose models.Purpose, code string) (*models.OneTimeCode, error) {
	now := s.now()

	record, err := s.repo.FindLatestActive(ctx, identifier, purpose, now)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			s.observe(purpose, metrics.ResultMissing)
			return nil, apperror.ErrInvalidOTP
		}
		s.observe(purpose, metrics.ResultError)
		return nil, apperror.Internal(err, "не удалось проверить код")
	}
	// Хранилище отбирает активные записи, но часы приложения и базы могут расходиться.
	if !record.IsActive(now) {
		s.observe(purpose, metrics.ResultMissing)
		return nil, apperror.ErrInvalidOTP
	}

	if !hmac.Equal([]byte(s.hashCode(code)), []byte(record.CodeHash)) {
		s.observe(purpose, metrics.ResultMismatch)
		return nil, apperror.ErrInvalidOTP
	}

	consumed, err := s.repo.MarkConsumed(ctx, record.ID, now)
	if err != nil {
		s.observe(purpose, metrics.ResultError)
		return nil, apperror.Internal(err, "не удалось проверить код")
	}
	if !consumed {
		logger.Log.WithFields(logrus.Fields{
			"purpose": purpose,
			"otp_id":  record.ID,
		}).Warn("otp: код уже использован параллельным запросом")
		s.observe(purpose, metrics.ResultRace)
		return nil, apperror.ErrInvalidOTP
	}

	record.ConsumedAt = &now
	s.observe(purpose, metrics.ResultOK)
	return record, nil
}

// generateCode возвращает равномерно распределённое число из [0, 10^length),
// дополненное нулями слева.
func (s *OTPService) generateCode() (string, error) {
	n, err := rand.Int(s.rand, s.max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.length, n), nil
}

func (s *OTPService) hashCode(code string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *OTPService) observe(purpose models.Purpose, result string) {
	metrics.OTPVerifications.WithLabelValues(string(purpose), result).Inc()
}
