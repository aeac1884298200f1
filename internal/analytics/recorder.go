// Package analytics records best-effort usage events. Recording never blocks
// or fails the caller.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"FortuneBox/internal/logger"
	"FortuneBox/internal/models"

	"go.uber.org/zap"
)

const (
	EventTierView        = "tier_view"
	EventTierClick       = "tier_click"
	EventProbabilityView = "probability_view"
	EventCheckoutStart   = "checkout_start"
	EventPaymentSuccess  = "payment_success"
	EventPaymentFail     = "payment_fail"
	EventBreakBoxStart   = "break_box_start"
	EventRewardReveal    = "reward_reveal"
	EventRewardFallback  = "reward_fallback"
	EventRefundRequest   = "refund_request"
	EventRefundSuccess   = "refund_success"
	EventShippingSubmit  = "shipping_submit"
	EventOrderCancelled  = "order_cancelled"
)

// Events in this set are also published to the live feed.
var publicEvents = map[string]bool{
	EventPaymentSuccess: true,
	EventRewardReveal:   true,
	EventRefundSuccess:  true,
	EventOrderCancelled: true,
}

const writeTimeout = 5 * time.Second

type Store interface {
	InsertEvent(ctx context.Context, evt models.AnalyticsEvent) error
}

type Publisher interface {
	Publish(msgType string, data any)
}

// Recorder queues events and writes them from a single goroutine.
type Recorder struct {
	store Store
	pub   Publisher
	queue chan models.AnalyticsEvent
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts the writer goroutine. pub may be nil.
func NewRecorder(st Store, pub Publisher, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store: st,
		pub:   pub,
		queue: make(chan models.AnalyticsEvent, buffer),
		now:   time.Now,
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Record enqueues evt, filling client metadata from ctx and the timestamp.
// A full queue drops the event.
func (r *Recorder) Record(ctx context.Context, evt models.AnalyticsEvent) {
	c := ClientFrom(ctx)
	if evt.UserIP == "" {
		evt.UserIP = c.IP
	}
	if evt.UserAgent == "" {
		evt.UserAgent = c.UserAgent
	}
	if evt.SessionID == "" {
		evt.SessionID = c.SessionID
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = r.now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- evt:
	default:
		logger.Warn("analytics queue full, event dropped", zap.String("event", evt.EventName))
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for evt := range r.queue {
		r.write(evt)
	}
}

func (r *Recorder) write(evt models.AnalyticsEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("analytics write panicked", zap.String("event", evt.EventName), zap.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.InsertEvent(ctx, evt); err != nil {
		logger.Warn("analytics insert failed", zap.String("event", evt.EventName), zap.Error(err))
	}

	if r.pub != nil && publicEvents[evt.EventName] {
		r.pub.Publish(evt.EventName, feedPayload(evt))
	}
}

type feedEvent struct {
	OrderID   *int64          `json:"order_id,omitempty"`
	TierCode  string          `json:"tier_code,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func feedPayload(evt models.AnalyticsEvent) feedEvent {
	out := feedEvent{OrderID: evt.OrderID, TierCode: evt.TierCode, CreatedAt: evt.CreatedAt}
	if evt.EventData != "" && json.Valid([]byte(evt.EventData)) {
		out.Data = json.RawMessage(evt.EventData)
	}
	return out
}

// Data marshals v as event_data. Marshal failures are logged and yield "".
func Data(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn("analytics data marshal failed", zap.String("type", fmt.Sprintf("%T", v)), zap.Error(err))
		return ""
	}
	return string(b)
}
