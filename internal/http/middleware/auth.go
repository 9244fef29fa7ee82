package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/otp-auth/internal/http/response"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextAccountIDKey = "accountID"
	ContextEmailKey     = "email"
	ContextPhoneKey     = "phone"
)

// AuthMiddleware проверяет bearer токен и кладёт данные аккаунта в контекст.
func AuthMiddleware(tokens *service.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		claims, err := tokens.Verify(raw)
		if err != nil {
			response.Abort(c, apperror.ErrInvalidToken)
			return
		}

		// Verify уже проверил, что sub является UUID.
		accountID, _ := claims.AccountID()

		c.Set(ContextAccountIDKey, accountID)
		c.Set(ContextEmailKey, claims.Email)
		c.Set(ContextPhoneKey, claims.Phone)
		c.Next()
	}
}
