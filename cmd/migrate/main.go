package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"FortuneBox/internal/config"
	"FortuneBox/internal/db"
	"FortuneBox/internal/logger"

	"go.uber.org/zap"
)

// Applies migrations/*.sql to PostgreSQL. The SQLite store migrates itself
// on open.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Init(false)
		logger.Fatal("config load failed", zap.Error(err))
	}
	logger.Init(cfg.Log.Debug)
	defer logger.Sync()

	if cfg.DB.Driver != config.DriverPostgres {
		logger.Info("nothing to migrate, store migrates on open", zap.String("driver", cfg.DB.Driver))
		return
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := ensureSchemaTable(ctx, pool); err != nil {
		logger.Fatal("ensure schema table failed", zap.Error(err))
	}

	files, err := listSQLFiles("migrations")
	if err != nil {
		logger.Fatal("list migrations failed", zap.Error(err))
	}

	for _, file := range files {
		applied, err := isApplied(ctx, pool, file)
		if err != nil {
			logger.Fatal("check migration failed", zap.String("file", file), zap.Error(err))
		}
		if applied {
			continue
		}

		if err := applyMigration(ctx, pool, file); err != nil {
			logger.Fatal("apply migration failed", zap.String("file", file), zap.Error(err))
		}
		logger.Info("applied migration", zap.String("file", file))
	}
}

func ensureSchemaTable(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`)
	return err
}

func listSQLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".sql") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isApplied(ctx context.Context, pool *db.Pool, file string) (bool, error) {
	var exists bool
	row := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename=$1)`, file)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// applyMigration runs the file and records it in one transaction.
func applyMigration(ctx context.Context, pool *db.Pool, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if sql := strings.TrimSpace(string(data)); sql != "" {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
