package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/otp-auth/internal/config"
	"github.com/ignatzorin/otp-auth/internal/db"
	"github.com/ignatzorin/otp-auth/internal/logger"
)

// NewMigrateCmd создаёт команду управления схемой базы.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление миграциями базы данных",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("migrate: схема актуальна")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Откатить все миграции (удаляет данные)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("migrate: все миграции откачены")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Показать текущую версию схемы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Println(formatVersion(version, dirty))
				return nil
			})
		},
	})

	return cmd
}

func formatVersion(version uint, dirty bool) string {
	if dirty {
		return fmt.Sprintf("version: %d (dirty)", version)
	}
	return fmt.Sprintf("version: %d", version)
}

func withMigrator(ctx context.Context, fn func(m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	return runMigrator(ctx, cfg.DatabaseURL, fn)
}

// migrateUp применяет миграции на отдельном соединении: мигратор закрывает
// переданную базу вместе с собой.
func migrateUp(ctx context.Context, dsn string) error {
	return runMigrator(ctx, dsn, func(m *db.Migrator) error {
		if err := m.Up(); err != nil {
			return err
		}
		version, _, err := m.Version()
		if err != nil {
			return err
		}
		logger.Log.WithField("version", version).Info("main: миграции применены")
		return nil
	})
}

func runMigrator(ctx context.Context, dsn string, fn func(m *db.Migrator) error) error {
	conn, err := db.NewPostgres(ctx, dsn)
	if err != nil {
		return err
	}

	m, err := db.NewMigrator(conn)
	if err != nil {
		safeClose(conn)
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Log.WithError(err).Warn("main: ошибка закрытия мигратора")
		}
	}()

	return fn(m)
}
