package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/otp-auth/internal/http/response"
	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

const rateLimitPrefix = "otp_auth_limiter"

// NewRateLimiter создаёт ограничитель limit запросов за period с одного IP.
// При client == nil счётчики хранятся в памяти процесса, иначе в Redis и
// общие для всех экземпляров сервиса. limit <= 0 отключает ограничение.
func NewRateLimiter(limit int64, period time.Duration, client *redis.Client) (*limiter.Limiter, error) {
	if limit <= 0 {
		return nil, nil
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	rate := limiter.Rate{
		Period: period,
		Limit:  limit,
	}

	var store limiter.Store
	if client != nil {
		var err error
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("rate limit: redis store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	return limiter.New(store, rate), nil
}

// RateLimitMiddleware ограничивает количество запросов. nil пропускает все запросы.
func RateLimitMiddleware(instance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if instance == nil {
			c.Next()
			return
		}

		key := c.ClientIP()
		context, err := instance.Get(c, key)
		if err != nil {
			logger.Log.WithError(err).Error("rate limit: не удалось получить счётчик")
			response.Abort(c, apperror.Internal(err, "ограничитель недоступен"))
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", context.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", context.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", context.Reset))

		if context.Reached {
			response.Abort(c, apperror.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
