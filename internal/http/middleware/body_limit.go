package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit ограничивает размер тела запроса. Превышение всплывает как
// *http.MaxBytesError при чтении тела в обработчике. maxBytes <= 0 снимает лимит.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
