// Package repository persists documents, cluster assignments and templates
// behind database/sql, speaking postgres via pgx or sqlite via modernc.
package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docmapper/internal/common"
)

// Store bundles the database handle with the pool it may be backed by.
type Store struct {
	DB   *sql.DB
	pool *pgxpool.Pool
}

// Open connects to the store named by the DSN. postgres:// DSNs go through
// a pgx pool; anything else is treated as a sqlite path or file: URI.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func openPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "docmapper"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("connected to postgres")
	return &Store{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}

func openSQLite(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}

	logger.Info("connected to sqlite", "dsn", cfg.DSN)
	return &Store{DB: db}, nil
}

// Close closes the database connections gracefully.
func (s *Store) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	logger.Info("database connections closed")
}

// Migrate creates the schema when it does not exist yet. The DDL sticks to
// types both postgres and sqlite accept.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			path        TEXT NOT NULL,
			text        TEXT NOT NULL DEFAULT '',
			pages       INTEGER NOT NULL DEFAULT 0,
			page_sizes  TEXT NOT NULL DEFAULT '[]',
			status      TEXT NOT NULL,
			cluster_id  TEXT NOT NULL DEFAULT '',
			is_reference INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_cluster ON documents (cluster_id)`,
		`CREATE TABLE IF NOT EXISTS clusters (
			id           TEXT PRIMARY KEY,
			reference_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS templates (
			cluster_id TEXT PRIMARY KEY,
			payload    TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return common.WrapError(err, "migrate schema")
		}
	}
	return nil
}
