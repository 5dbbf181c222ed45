// Package database wraps the pgx connection pool and schema migrations.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a pgx connection pool shared across the repositories.
type DB struct {
	Pool *pgxpool.Pool
}

// NewConnection opens a connection pool against the given database URL and
// tunes its size from maxConns, mirroring the teacher's single-pool-per-process
// shape (controllers and repositories all take *DB and reach into .Pool).
func NewConnection(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations applies every migration under internal/database/migrations
// that hasn't yet been applied, using golang-migrate's embedded-source
// driver (the teacher names this dependency in go.mod but never shipped the
// package that calls it).
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Health reports whether the pool can still reach Postgres, grounded on the
// teacher's HealthController calling db.Health(ctx) before the pool ping was
// ever implemented.
func (db *DB) Health(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Stat exposes the pool's size/available counts for the db_pool_size and
// db_pool_available gauges (spec.md §6 Observability).
func (db *DB) Stat() (size, available int32) {
	stat := db.Pool.Stat()
	return stat.TotalConns(), stat.IdleConns()
}

// Close releases the pool. Safe to call once at shutdown.
func (db *DB) Close() {
	db.Pool.Close()
}
