package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/otp-auth/internal/config"
	"github.com/ignatzorin/otp-auth/internal/http/handlers"
	"github.com/ignatzorin/otp-auth/internal/http/middleware"
	"github.com/ignatzorin/otp-auth/internal/service"
)

// Handlers набор обработчиков, которые подключает роутер.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Action *handlers.ActionHandler
	Health *handlers.HealthHandler
	Web    *handlers.WebHandler
	Docs   *handlers.DocsHandler
}

// SetupRouter собирает gin engine. authLimiter ограничивает только парольные
// маршруты; nil отключает ограничение.
func SetupRouter(cfg *config.Config, h Handlers, tokens *service.TokenIssuer, authLimiter *limiter.Limiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", h.Docs.Serve)

	api := r.Group("/api")

	throttled := middleware.RateLimitMiddleware(authLimiter)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", throttled, h.Auth.Register)
		authGroup.POST("/login", throttled, h.Auth.Login)

		authGroup.POST("/signup/otp/request", h.Auth.RequestSignupOTP)
		authGroup.POST("/signup/otp/verify", h.Auth.VerifySignupOTP)
		authGroup.POST("/login/otp/request", h.Auth.RequestLoginOTP)
		authGroup.POST("/login/otp/verify", h.Auth.VerifyLoginOTP)
		authGroup.POST("/forgot-password/request", h.Auth.RequestPasswordReset)
		authGroup.POST("/forgot-password/verify", throttled, h.Auth.ResetPassword)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		protected.GET("/auth/me", h.Auth.Me)
		protected.POST("/actions", h.Action.CreateAction)
	}

	r.NoRoute(h.Web.NoRoute)

	return r
}
