package main

import (
	"context"
	"flag"
	"os"

	"FortuneBox/internal/config"
	"FortuneBox/internal/db"
	"FortuneBox/internal/logger"
	"FortuneBox/internal/report"

	"go.uber.org/zap"
)

func main() {
	limit := flag.Int("limit", 20, "recent orders to list")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		logger.Init(false)
		logger.Fatal("config load failed", zap.Error(err))
	}
	logger.Init(cfg.Log.Debug)
	defer logger.Sync()

	ctx := context.Background()
	st, err := db.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer st.Close()

	if err := report.Odds(ctx, os.Stdout, st); err != nil {
		logger.Fatal("odds report failed", zap.Error(err))
	}
	if err := report.RecentOrders(ctx, os.Stdout, st, *limit); err != nil {
		logger.Fatal("orders report failed", zap.Error(err))
	}
}
