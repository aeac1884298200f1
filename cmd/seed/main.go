package main

import (
	"context"
	"flag"

	"FortuneBox/internal/catalog"
	"FortuneBox/internal/config"
	"FortuneBox/internal/db"
	"FortuneBox/internal/logger"

	"go.uber.org/zap"
)

func main() {
	path := flag.String("catalog", "", "catalog YAML file (defaults to catalog.path)")
	dryRun := flag.Bool("dry-run", false, "validate the catalog without writing it")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		logger.Init(false)
		logger.Fatal("config load failed", zap.Error(err))
	}
	logger.Init(cfg.Log.Debug)
	defer logger.Sync()

	if *path == "" {
		*path = cfg.Catalog.Path
	}
	c, err := catalog.Load(*path)
	if err != nil {
		logger.Fatal("catalog invalid", zap.String("path", *path), zap.Error(err))
	}
	if *dryRun {
		logger.Info("catalog valid", zap.String("path", *path), zap.Int("tiers", len(c.Tiers)))
		return
	}

	ctx := context.Background()
	st, err := db.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer st.Close()

	if err := c.Apply(ctx, st); err != nil {
		logger.Fatal("catalog apply failed", zap.Error(err))
	}
	logger.Info("catalog seeded", zap.String("path", *path), zap.Int("tiers", len(c.Tiers)))
}
