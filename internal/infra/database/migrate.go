package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

func withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMigrator opens a database/sql handle over pool for goose.
func NewMigrator(pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: stdlib.OpenDBFromPool(pool), logger: logger}
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	return withGoose(func() error {
		if err := goose.UpContext(ctx, m.db, migrationsDir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		version, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}
		m.logger.Info("database migrated", zap.Int64("version", version))
		return nil
	})
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	return withGoose(func() error {
		if err := goose.DownContext(ctx, m.db, migrationsDir); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

// Status logs the state of every migration through goose's logger.
func (m *Migrator) Status(ctx context.Context) error {
	return withGoose(func() error {
		if err := goose.StatusContext(ctx, m.db, migrationsDir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := withGoose(func() error {
		v, err := goose.GetDBVersionContext(ctx, m.db)
		version = v
		return err
	})
	return version, err
}

// Close releases the database/sql handle. The pool stays open.
func (m *Migrator) Close() error {
	return m.db.Close()
}
