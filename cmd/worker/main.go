package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"FortuneBox/internal/analytics"
	"FortuneBox/internal/config"
	"FortuneBox/internal/db"
	"FortuneBox/internal/logger"
	"FortuneBox/internal/worker"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Init(false)
		logger.Fatal("config load failed", zap.Error(err))
	}
	logger.Init(cfg.Log.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := db.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer st.Close()

	recorder := analytics.NewRecorder(st, nil, cfg.Analytics.BufferSize)
	defer recorder.Close()

	w := &worker.Sweeper{
		Store:    st,
		Events:   recorder,
		TTL:      time.Duration(cfg.Orders.PendingTTLMinutes) * time.Minute,
		Interval: time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
	}

	logger.Info("sweeper started",
		zap.Duration("ttl", w.TTL),
		zap.Duration("interval", w.Interval))
	w.Run(ctx)
	logger.Info("sweeper stopped")
}
