package db

import (
	"context"
	"fmt"

	"FortuneBox/internal/config"
	"FortuneBox/internal/store"
	"FortuneBox/internal/store/postgres"
	"FortuneBox/internal/store/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Pool = pgxpool.Pool

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// OpenStore opens the store selected by cfg.DB.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.New(pool), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
}
