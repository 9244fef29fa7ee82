package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/otp-auth/internal/http/response"
	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Silence()
	os.Exit(m.Run())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	tokens := service.NewTokenIssuer("middleware-secret-0123456789abcdef", time.Hour)
	accountID := uuid.New()
	email := "a@x.com"
	token, err := tokens.Sign(accountID, &email, nil)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		id, _ := c.Get(ContextAccountIDKey)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	cases := map[string]struct {
		header string
		status int
	}{
		"valid":      {"Bearer " + token, http.StatusOK},
		"missing":    {"", http.StatusUnauthorized},
		"not bearer": {"Basic abc", http.StatusUnauthorized},
		"garbage":    {"Bearer garbage", http.StatusUnauthorized},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusUnauthorized {
				body := decode(t, w)
				assert.Equal(t, string(apperror.ErrCodeAuth), body.Error.Code)
			} else {
				assert.Contains(t, w.Body.String(), accountID.String())
			}
		})
	}
}

func TestErrorHandler_RendersEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(apperror.ErrAccountExists) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("pq: relation does not exist")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w).Error.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 26)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-supplied")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-supplied", w.Header().Get(HeaderRequestID))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func hitRateLimited(t *testing.T, r *gin.Engine, times int) []int {
	t.Helper()
	codes := make([]int, 0, times)
	for i := 0; i < times; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	return codes
}

func rateLimitedEngine(t *testing.T, client *redis.Client) *gin.Engine {
	t.Helper()
	instance, err := NewRateLimiter(2, time.Minute, client)
	require.NoError(t, err)

	r := gin.New()
	r.Use(RateLimitMiddleware(instance))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitMiddleware_MemoryStore(t *testing.T) {
	r := rateLimitedEngine(t, nil)

	codes := hitRateLimited(t, r, 3)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := rateLimitedEngine(t, client)
	codes := hitRateLimited(t, r, 3)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Второй экземпляр видит те же счётчики.
	other := rateLimitedEngine(t, client)
	assert.Equal(t, []int{http.StatusTooManyRequests}, hitRateLimited(t, other, 1))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	instance, err := NewRateLimiter(0, time.Minute, nil)
	require.NoError(t, err)
	assert.Nil(t, instance)

	r := gin.New()
	r.Use(RateLimitMiddleware(instance))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, code := range hitRateLimited(t, r, 5) {
		assert.Equal(t, http.StatusOK, code)
	}
}
