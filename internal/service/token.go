package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

// Claims содержимое bearer токена: идентификатор аккаунта в sub
// и контакты, известные на момент подписи.
type Claims struct {
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// AccountID разбирает sub как UUID аккаунта.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenIssuer отвечает за выпуск и проверку JWT. Состояния не хранит,
// отзыв токенов не поддерживается.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer создаёт издателя токенов.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign выпускает токен для аккаунта.
func (i *TokenIssuer) Sign(subject uuid.UUID, email, phone *string) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", apperror.Internal(err, "не удалось подписать токен")
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия. Любая причина отказа
// превращается в одну и ту же ошибку ErrInvalidToken.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeAuth, apperror.ErrInvalidToken.Message)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperror.ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeAuth, apperror.ErrInvalidToken.Message)
	}

	return claims, nil
}
