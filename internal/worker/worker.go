// Package worker runs background maintenance over orders.
package worker

import (
	"context"
	"time"

	"FortuneBox/internal/analytics"
	"FortuneBox/internal/logger"
	"FortuneBox/internal/models"
	"FortuneBox/internal/services"
	"FortuneBox/internal/store"

	"go.uber.org/zap"
)

// Sweeper cancels payment_pending orders that were never paid.
type Sweeper struct {
	Store    store.Store
	Events   services.Recorder
	TTL      time.Duration
	Interval time.Duration
	Now      func() time.Time
}

func (w *Sweeper) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.SweepOnce(ctx); err != nil {
			logger.Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce cancels every pending order older than the TTL and returns
// their IDs.
func (w *Sweeper) SweepOnce(ctx context.Context) ([]int64, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ttl := w.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := now().UTC().Add(-ttl)

	ids, err := w.Store.CancelStalePending(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		logger.Debug("sweep found no stale orders", zap.Time("cutoff", cutoff))
		return nil, nil
	}

	logger.Info("cancelled stale orders", zap.Int("count", len(ids)), zap.Int64s("order_ids", ids))
	for _, id := range ids {
		orderID := id
		if w.Events != nil {
			w.Events.Record(ctx, models.AnalyticsEvent{
				EventName: analytics.EventOrderCancelled,
				OrderID:   &orderID,
				EventData: analytics.Data(map[string]any{"reason": "payment_timeout", "ttl_minutes": int64(ttl / time.Minute)}),
			})
		}
	}
	return ids, nil
}
