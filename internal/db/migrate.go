package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrator подмножество golang-migrate, которое нужно Migrator.
type migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

// Migrator применяет встроенные SQL миграции к базе.
type Migrator struct {
	m migrator
}

// NewMigrator создаёт мигратор поверх уже открытого соединения.
// Закрытие мигратора закрывает и переданное соединение, поэтому для
// долгоживущего процесса стоит передавать отдельный *sqlx.DB.
func NewMigrator(conn *sqlx.DB) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: не удалось открыть источник миграций: %w", err)
	}

	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{})
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("migrate: не удалось создать драйвер postgres: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("migrate: не удалось инициализировать мигратор: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Up применяет все непримененные миграции.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// Down откатывает все миграции. Удаляет все таблицы вместе с данными.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: down: %w", err)
	}
	return nil
}

// Version возвращает текущую версию схемы; 0, если миграции ещё не применялись.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate: version: %w", err)
	}
	return version, dirty, nil
}

// Close освобождает источник и драйвер.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil || dbErr != nil {
		return fmt.Errorf("migrate: close: %w", errors.Join(srcErr, dbErr))
	}
	return nil
}
