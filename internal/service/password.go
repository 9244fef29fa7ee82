package service

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

// dummyPassword хешируется один раз и используется для сравнения,
// когда у аккаунта нет хеша, чтобы время ответа не выдавало причину отказа.
const dummyPassword = "otp-auth-timing-parity"

// PasswordHasher выполняет bcrypt в ограниченном пуле воркеров.
// Запущенное хеширование не прерывается, контекст влияет только на ожидание слота.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher создаёт пул на workers одновременных операций.
func NewPasswordHasher(cost, workers int) *PasswordHasher {
	if workers <= 0 {
		workers = 1
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(workers)),
	}
}

// Hash возвращает bcrypt хеш пароля.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", apperror.Internal(err, "не удалось захешировать пароль")
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.Validation("пароль слишком длинный")
		}
		return "", apperror.Internal(err, "не удалось захешировать пароль")
	}
	return string(hash), nil
}

// Compare сверяет пароль с хешем. При hash == nil сравнение всё равно
// выполняется с фиктивным хешем и возвращает false.
func (h *PasswordHasher) Compare(ctx context.Context, hash *string, password string) (bool, error) {
	target, matchable := h.dummy(), false
	if hash != nil && *hash != "" {
		target, matchable = []byte(*hash), true
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, apperror.Internal(err, "не удалось проверить пароль")
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword(target, []byte(password))
	return matchable && err == nil, nil
}

func (h *PasswordHasher) dummy() []byte {
	h.dummyOnce.Do(func() {
		// Ошибка возможна только при неверном cost, он проверяется при загрузке конфигурации.
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
	})
	return h.dummyHash
}
