package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FortuneBox/internal/analytics"
	"FortuneBox/internal/config"
	"FortuneBox/internal/db"
	"FortuneBox/internal/feed"
	internalhttp "FortuneBox/internal/http"
	"FortuneBox/internal/logger"
	"FortuneBox/internal/payments"
	"FortuneBox/internal/selector"
	"FortuneBox/internal/services"

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := db.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("db open failed", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	defer st.Close()

	hub := feed.NewHub(cfg.Analytics.BufferSize)
	go hub.Run(ctx)

	recorder := analytics.NewRecorder(st, hub, cfg.Analytics.BufferSize)
	defer recorder.Close()

	h := &internalhttp.Handler{
		Catalog: services.CatalogService{Store: st, Events: recorder},
		Orders: services.OrderService{
			Store: st,
			Payments: payments.StubGateway{
				SuccessRate:   cfg.Payments.SuccessRate,
				DefaultMethod: cfg.Payments.DefaultMethod,
			},
			Events:           recorder,
			Source:           selector.DefaultSource,
			Numbers:          services.NewNumberGenerator(cfg.Orders.NumberPrefix, cfg.Orders.NumberDigits),
			NumberAttempts:   cfg.Orders.NumberAttempts,
			DefaultListLimit: cfg.Orders.DefaultListLimit,
			MaxListLimit:     cfg.Orders.MaxListLimit,
		},
		Shipping: services.ShippingService{Store: st, Events: recorder},
	}
	srv := internalhttp.NewServer(h, hub)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Server.Addr), zap.String("driver", cfg.DB.Driver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}
