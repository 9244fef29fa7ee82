package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/otp-auth/internal/http/response"
	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Обработчики кладут ошибку через c.Error, ответ формируется здесь.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		fields := logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString(ContextRequestIDKey),
			"code":       apperror.KindOf(err),
		}
		if apperror.KindOf(err) == apperror.ErrCodeInternal {
			logger.Log.WithFields(fields).WithError(err).Error("Request error")
		} else {
			logger.Log.WithFields(fields).Debug("Request rejected")
		}

		response.Error(c, err)
	}
}
