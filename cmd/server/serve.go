package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/otp-auth/internal/config"
	"github.com/ignatzorin/otp-auth/internal/db"
	"github.com/ignatzorin/otp-auth/internal/goroutine"
	"github.com/ignatzorin/otp-auth/internal/http/handlers"
	"github.com/ignatzorin/otp-auth/internal/http/middleware"
	httpRouter "github.com/ignatzorin/otp-auth/internal/http/router"
	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/mailgun"
	"github.com/ignatzorin/otp-auth/internal/repository"
	"github.com/ignatzorin/otp-auth/internal/service"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd создаёт команду запуска HTTP сервера.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Готовим контекст для graceful shutdown.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	if cfg.MigrateOnStart {
		if err := migrateUp(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer safeClose(dbConn)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("main: некорректный REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Log.WithError(err).Warn("main: ошибка закрытия redis")
			}
		}()
	}

	authLimiter, err := middleware.NewRateLimiter(cfg.RateLimitLimit, cfg.RateLimitPeriod, redisClient)
	if err != nil {
		return err
	}

	// Почтовый провайдер необязателен вне production.
	var emailSender service.EmailSender
	if cfg.MailgunEnabled() {
		emailSender = mailgun.NewClient(cfg.Mailgun.APIKey, cfg.Mailgun.Domain, cfg.Mailgun.BaseURL)
	}

	// Репозитории.
	accountRepo := repository.NewAccountRepository(dbConn)
	otpRepo := repository.NewOTPRepository(dbConn)
	actionRepo := repository.NewActionRepository(dbConn)

	// Сервисы.
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	otpService := service.NewOTPService(otpRepo, service.OTPConfig{
		Secret: cfg.OTPSecret,
		TTL:    cfg.OTPTTL,
		Length: cfg.OTPLength,
	})
	dispatcher := service.NewOTPDispatcher(emailSender, cfg.Mailgun.From, cfg.IsProduction())
	hasher := service.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	authService := service.NewAuthService(accountRepo, otpService, dispatcher, tokens, hasher)
	actionService := service.NewActionService(actionRepo)

	checks := map[string]handlers.Pinger{"database": dbConn}
	if redisClient != nil {
		checks["redis"] = redisPinger{redisClient}
	}

	docs, err := handlers.NewDocsHandler()
	if err != nil {
		return err
	}

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Auth:   handlers.NewAuthHandler(authService, cfg.OTPLength, !cfg.IsProduction()),
		Action: handlers.NewActionHandler(actionService),
		Health: handlers.NewHealthHandler(checks),
		Web:    handlers.NewWebHandler(cfg.WebRoot),
		Docs:   docs,
	}, tokens, authLimiter)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGoWithContext(ctx, "http-shutdown", func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("main: сервер завершился с ошибкой: %w", err)
	}

	logger.Log.Info("main: сервер остановлен")
	return nil
}

// redisPinger приводит go-redis клиент к handlers.Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
