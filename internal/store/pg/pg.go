// Package pg implementa los repositorios sobre PostgreSQL con pgx.
package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/migrations"
)

// Options ajusta el pool de conexiones. Los zero values dejan los defaults de pgx.
type Options struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open conecta, hace ping y aplica las migraciones pendientes.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	s := &Store{pool: pool, log: logger.Named("pg")}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

// Ping reporta la vida del backend (readiness).
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Clients() *ClientRepo { return &ClientRepo{pool: s.pool} }
func (s *Store) Users() *UserRepo     { return &UserRepo{pool: s.pool} }

// migrate aplica cada SQL embebido en orden lexical, registrando los
// nombres aplicados en schema_migrations.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("pg: migrations table: %w", err)
	}

	entries, err := fs.Glob(migrations.Postgres, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("pg: list migrations: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		var done bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done)
		if err != nil {
			return fmt.Errorf("pg: check migration %s: %w", name, err)
		}
		if done {
			continue
		}
		sql, err := fs.ReadFile(migrations.Postgres, name)
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", name, err)
		}
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("pg: begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("pg: record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("pg: commit migration %s: %w", name, err)
		}
		s.log.Info("migration applied", zap.String("name", name))
	}
	return nil
}
