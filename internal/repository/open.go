// Package repository selects the store named by DATABASE_URL.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/internal/repository/postgres"
	"github.com/millops/backend/internal/repository/sqlite"
)

const sqliteScheme = "sqlite://"

// Open connects to the store for databaseURL and applies the schema:
// postgres:// or postgresql:// uses pgx, sqlite://path a local file, and an empty
// URL the seeded in-memory mock. An unreachable postgres also falls back to the mock.
// The returned close function is never nil.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (domain.DataRepository, func(), error) {
	switch {
	case databaseURL == "":
		logger.Info("no DATABASE_URL, running with mock data only")
		return postgres.NewMockRepository(), func() {}, nil

	case strings.HasPrefix(databaseURL, sqliteScheme):
		repo, err := sqlite.Open(strings.TrimPrefix(databaseURL, sqliteScheme))
		if err != nil {
			return nil, func() {}, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, func() {}, err
		}
		logger.Info("using sqlite store", "path", strings.TrimPrefix(databaseURL, sqliteScheme))
		return repo, func() { _ = repo.Close() }, nil

	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		pool, err := pgxpool.New(ctx, databaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			logger.Warn("could not connect to database, running with mock data only", "error", err)
			return postgres.NewMockRepository(), func() {}, nil
		}
		repo := postgres.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		logger.Info("connected to PostgreSQL")
		return repo, pool.Close, nil

	default:
		return nil, func() {}, fmt.Errorf("repository: unsupported DATABASE_URL scheme in %q", redact(databaseURL))
	}
}

// redact drops everything after the scheme so credentials stay out of logs
func redact(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i+3] + "..."
	}
	return "..."
}
