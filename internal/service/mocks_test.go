package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/repository"
)

// mockAccountRepository реализует AccountRepository на картах.
type mockAccountRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Account
	byEmail map[string]*models.Account
	byPhone map[string]*models.Account
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{
		byID:    make(map[uuid.UUID]*models.Account),
		byEmail: make(map[string]*models.Account),
		byPhone: make(map[string]*models.Account),
	}
}

func (m *mockAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byEmail[email]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (m *mockAccountRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byPhone[phone]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (m *mockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (m *mockAccountRepository) Create(ctx context.Context, params repository.CreateAccountParams) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := params.Contact.Value
	account := &models.Account{
		ID:           uuid.New(),
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now(),
	}
	switch params.Contact.Channel {
	case models.ChannelEmail:
		if _, ok := m.byEmail[value]; ok {
			return nil, repository.ErrAccountExists
		}
		account.Email = &value
		m.byEmail[value] = account
	case models.ChannelPhone:
		if _, ok := m.byPhone[value]; ok {
			return nil, repository.ErrAccountExists
		}
		account.Phone = &value
		m.byPhone[value] = account
	}
	m.byID[account.ID] = account
	return account, nil
}

func (m *mockAccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	a.PasswordHash = &passwordHash
	return a, nil
}

// remove удаляет аккаунт, имитируя его исчезновение между выпуском и проверкой кода.
func (m *mockAccountRepository) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return
	}
	if a.Email != nil {
		delete(m.byEmail, *a.Email)
	}
	if a.Phone != nil {
		delete(m.byPhone, *a.Phone)
	}
	delete(m.byID, id)
}

// mockOTPRepository хранит коды в срезе в порядке создания.
// MarkConsumed проверяет и меняет состояние под одной блокировкой, как условный UPDATE.
type mockOTPRepository struct {
	mu      sync.Mutex
	records []*models.OneTimeCode
}

func newMockOTPRepository() *mockOTPRepository {
	return &mockOTPRepository{}
}

func (m *mockOTPRepository) Create(ctx context.Context, params repository.CreateOTPParams) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := &models.OneTimeCode{
		ID:         uuid.New(),
		Identifier: params.Identifier,
		Channel:    params.Channel,
		Purpose:    params.Purpose,
		CodeHash:   params.CodeHash,
		ExpiresAt:  params.ExpiresAt,
		CreatedAt:  time.Now(),
		AccountID:  params.AccountID,
	}
	m.records = append(m.records, record)
	return record, nil
}

func (m *mockOTPRepository) FindLatestActive(ctx context.Context, identifier string, purpose models.Purpose, now time.Time) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Identifier == identifier && r.Purpose == purpose && r.IsActive(now) {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrOTPNotFound
}

func (m *mockOTPRepository) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			if r.ConsumedAt != nil {
				return false, nil
			}
			consumed := at
			r.ConsumedAt = &consumed
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOTPRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// captureSender запоминает последние отправленные коды.
type captureSender struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (c *captureSender) SendOTP(ctx context.Context, in Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.deliveries = append(c.deliveries, in)
	return nil
}

func (c *captureSender) last() Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveries[len(c.deliveries)-1]
}

// mockEmailSender провайдер почты на testify/mock.
type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) Send(ctx context.Context, from, to, subject, text string) error {
	args := m.Called(ctx, from, to, subject, text)
	return args.Error(0)
}

const testSecret = "test-secret-0123456789abcdef0123456789"

type authFixture struct {
	service  *AuthService
	accounts *mockAccountRepository
	otps     *mockOTPRepository
	otp      *OTPService
	sender   *captureSender
	tokens   *TokenIssuer
}

func newAuthFixture() *authFixture {
	accounts := newMockAccountRepository()
	otps := newMockOTPRepository()
	otp := NewOTPService(otps, OTPConfig{Secret: testSecret, TTL: 5 * time.Minute, Length: 6})
	sender := &captureSender{}
	tokens := NewTokenIssuer(testSecret, time.Hour)
	hasher := NewPasswordHasher(bcrypt.MinCost, 4)

	return &authFixture{
		service:  NewAuthService(accounts, otp, sender, tokens, hasher),
		accounts: accounts,
		otps:     otps,
		otp:      otp,
		sender:   sender,
		tokens:   tokens,
	}
}

func strPtr(s string) *string {
	return &s
}

func accountParams(contact models.Contact) repository.CreateAccountParams {
	return repository.CreateAccountParams{Contact: contact}
}
