package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/metrics"
	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/repository"
)

// AccountRepository описывает зависимости AuthService от слоя хранилища.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Create(ctx context.Context, params repository.CreateAccountParams) (*models.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (*models.Account, error)
}

// OTPSender доставляет выпущенный код.
type OTPSender interface {
	SendOTP(ctx context.Context, in Delivery) error
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	Account *models.Account
	Token   string
}

// VerifySignupInput данные для завершения регистрации по коду.
type VerifySignupInput struct {
	Contact  models.Contact
	Code     string
	Password *string
}

// ResetPasswordInput данные для смены пароля по коду.
type ResetPasswordInput struct {
	Contact     models.Contact
	Code        string
	NewPassword string
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	accounts AccountRepository
	otp      *OTPService
	sender   OTPSender
	tokens   *TokenIssuer
	hasher   *PasswordHasher
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(accounts AccountRepository, otp *OTPService, sender OTPSender, tokens *TokenIssuer, hasher *PasswordHasher) *AuthService {
	return &AuthService{
		accounts: accounts,
		otp:      otp,
		sender:   sender,
		tokens:   tokens,
		hasher:   hasher,
	}
}

// Register создаёт аккаунт с email и паролем.
func (s *AuthService) Register(ctx context.Context, email, password string) (result *AuthResult, err error) {
	defer func() { metrics.ObserveFlow("register", err) }()

	existing, err := s.findByContact(ctx, models.EmailContact(email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Create(ctx, repository.CreateAccountParams{
		Contact:      models.EmailContact(email),
		PasswordHash: &hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return nil, apperror.ErrEmailTaken
		}
		return nil, apperror.Internal(err, "не удалось создать аккаунт")
	}

	return s.issue(account)
}

// Login проверяет email и пароль. Все причины отказа неразличимы снаружи.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	defer func() { metrics.ObserveFlow("login", err) }()

	account, err := s.findByContact(ctx, models.EmailContact(email))
	if err != nil {
		return nil, err
	}

	var hash *string
	if account != nil && account.HasPassword() {
		hash = account.PasswordHash
	}

	ok, err := s.hasher.Compare(ctx, hash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issue(account)
}

// RequestSignupOTP выпускает код регистрации для нового контакта.
func (s *AuthService) RequestSignupOTP(ctx context.Context, contact models.Contact) (result *OTPResult, err error) {
	defer func() { metrics.ObserveFlow("signup_otp_request", err) }()

	existing, err := s.findByContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAccountExists
	}

	return s.issueOTP(ctx, contact, models.PurposeSignup, nil)
}

// VerifySignupOTP проверяет код регистрации и создаёт аккаунт.
// Пароль необязателен: без него войти можно только по коду.
func (s *AuthService) VerifySignupOTP(ctx context.Context, in VerifySignupInput) (result *AuthResult, err error) {
	defer func() { metrics.ObserveFlow("signup_otp_verify", err) }()

	// Аккаунт мог появиться между запросом и проверкой кода.
	existing, err := s.findByContact(ctx, in.Contact)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAccountExists
	}

	if _, err := s.otp.VerifyOTP(ctx, in.Contact.Value, models.PurposeSignup, in.Code); err != nil {
		return nil, err
	}

	params := repository.CreateAccountParams{Contact: in.Contact}
	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return nil, err
		}
		params.PasswordHash = &hash
	}

	account, err := s.accounts.Create(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return nil, apperror.ErrAccountExists
		}
		return nil, apperror.Internal(err, "не удалось создать аккаунт")
	}

	return s.issue(account)
}

// RequestLoginOTP выпускает код входа. Для неизвестного контакта возвращает
// ошибку авторизации, в отличие от сброса пароля.
func (s *AuthService) RequestLoginOTP(ctx context.Context, contact models.Contact) (result *OTPResult, err error) {
	defer func() { metrics.ObserveFlow("login_otp_request", err) }()

	account, err := s.findByContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issueOTP(ctx, contact, models.PurposeLogin, &account.ID)
}

// VerifyLoginOTP проверяет код входа и выпускает токен.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, contact models.Contact, code string) (result *AuthResult, err error) {
	defer func() { metrics.ObserveFlow("login_otp_verify", err) }()

	record, err := s.otp.VerifyOTP(ctx, contact.Value, models.PurposeLogin, code)
	if err != nil {
		return nil, err
	}

	account, err := s.resolveAccount(ctx, record, contact)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issue(account)
}

// RequestPasswordResetOTP выпускает код сброса независимо от того,
// существует ли аккаунт. Ответ в обоих случаях одинаковый.
func (s *AuthService) RequestPasswordResetOTP(ctx context.Context, contact models.Contact) (result *OTPResult, err error) {
	defer func() { metrics.ObserveFlow("reset_otp_request", err) }()

	account, err := s.findByContact(ctx, contact)
	if err != nil {
		return nil, err
	}

	var accountID *uuid.UUID
	if account != nil {
		accountID = &account.ID
	}

	return s.issueOTP(ctx, contact, models.PurposeReset, accountID)
}

// ResetPasswordWithOTP проверяет код сброса и заменяет пароль.
func (s *AuthService) ResetPasswordWithOTP(ctx context.Context, in ResetPasswordInput) (result *AuthResult, err error) {
	defer func() { metrics.ObserveFlow("reset_otp_verify", err) }()

	record, err := s.otp.VerifyOTP(ctx, in.Contact.Value, models.PurposeReset, in.Code)
	if err != nil {
		return nil, err
	}

	account, err := s.resolveAccount(ctx, record, in.Contact)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperror.ErrInvalidOTP
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return nil, err
	}

	updated, err := s.accounts.UpdatePassword(ctx, account.ID, hash)
	if err != nil {
		return nil, apperror.Internal(err, "не удалось обновить пароль")
	}

	logger.Log.WithField("account_id", updated.ID).Info("auth: пароль изменён по коду")

	return s.issue(updated)
}

// CurrentAccount возвращает аккаунт по идентификатору из токена.
func (s *AuthService) CurrentAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, apperror.ErrAccountNotFound
		}
		return nil, apperror.Internal(err, "не удалось загрузить аккаунт")
	}
	return account, nil
}

// issueOTP выпускает код и передаёт его в доставку. Запись кода
// не откатывается, если доставка не удалась.
func (s *AuthService) issueOTP(ctx context.Context, contact models.Contact, purpose models.Purpose, accountID *uuid.UUID) (*OTPResult, error) {
	result, err := s.otp.RequestOTP(ctx, RequestOTPInput{
		Contact:   contact,
		Purpose:   purpose,
		AccountID: accountID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sender.SendOTP(ctx, Delivery{
		Channel:    contact.Channel,
		Identifier: contact.Value,
		Code:       result.Code,
		Purpose:    purpose,
		ExpiresAt:  result.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"channel": contact.Channel,
		"purpose": purpose,
		"to":      logger.MaskIdentifier(contact.Value),
	}).Info("auth: код выпущен")

	return result, nil
}

// resolveAccount находит аккаунт по привязке в записи кода, иначе по контакту.
func (s *AuthService) resolveAccount(ctx context.Context, record *models.OneTimeCode, contact models.Contact) (*models.Account, error) {
	if record.AccountID == nil {
		return s.findByContact(ctx, contact)
	}

	account, err := s.accounts.FindByID(ctx, *record.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal(err, "не удалось загрузить аккаунт")
	}
	return account, nil
}

// findByContact возвращает nil без ошибки, если аккаунта нет.
func (s *AuthService) findByContact(ctx context.Context, contact models.Contact) (*models.Account, error) {
	var (
		account *models.Account
		err     error
	)
	switch contact.Channel {
	case models.ChannelEmail:
		account, err = s.accounts.FindByEmail(ctx, contact.Value)
	case models.ChannelPhone:
		account, err = s.accounts.FindByPhone(ctx, contact.Value)
	default:
		return nil, apperror.Validation("неизвестный канал")
	}

	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal(err, "не удалось загрузить аккаунт")
	}
	return account, nil
}

func (s *AuthService) issue(account *models.Account) (*AuthResult, error) {
	token, err := s.tokens.Sign(account.ID, account.Email, account.Phone)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Token: token}, nil
}
