package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"FortuneBox/internal/logger"
	"FortuneBox/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	mu     sync.Mutex
	events []models.AnalyticsEvent
	err    error
	panic  bool
}

func (m *memStore) InsertEvent(_ context.Context, evt models.AnalyticsEvent) error {
	if m.panic {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evt)
	return nil
}

type memPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *memPublisher) Publish(msgType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, msgType)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })
	return logs
}

func TestRecorderWritesAndPublishes(t *testing.T) {
	st := &memStore{}
	pub := &memPublisher{}
	r := NewRecorder(st, pub, 16)

	ctx := WithClient(context.Background(), Client{IP: "10.0.0.1", UserAgent: "test-agent", SessionID: "s1"})
	orderID := int64(3)
	r.Record(ctx, models.AnalyticsEvent{EventName: EventTierView, TierCode: "GOLD"})
	r.Record(ctx, models.AnalyticsEvent{EventName: EventRewardReveal, OrderID: &orderID, EventData: Data(map[string]int64{"reward_id": 9})})
	r.Close()

	if len(st.events) != 2 {
		t.Fatalf("unexpected event count: got=%d want=2", len(st.events))
	}
	first := st.events[0]
	if first.UserIP != "10.0.0.1" || first.UserAgent != "test-agent" || first.SessionID != "s1" {
		t.Fatalf("client metadata not applied: %+v", first)
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
	if len(pub.types) != 1 || pub.types[0] != EventRewardReveal {
		t.Fatalf("unexpected published events: %v", pub.types)
	}
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	logs := observeLogs(t)
	r := NewRecorder(&memStore{err: errors.New("db down")}, nil, 4)
	r.Record(context.Background(), models.AnalyticsEvent{EventName: EventCheckoutStart})
	r.Close()

	if got := logs.FilterMessage("analytics insert failed").Len(); got != 1 {
		t.Fatalf("unexpected warning count: got=%d want=1", got)
	}
}

func TestRecorderRecoversPanics(t *testing.T) {
	logs := observeLogs(t)
	r := NewRecorder(&memStore{panic: true}, nil, 4)
	r.Record(context.Background(), models.AnalyticsEvent{EventName: EventCheckoutStart})
	r.Record(context.Background(), models.AnalyticsEvent{EventName: EventCheckoutStart})
	r.Close()

	if got := logs.FilterMessage("analytics write panicked").Len(); got != 2 {
		t.Fatalf("unexpected panic log count: got=%d want=2", got)
	}
}

func TestRecordAfterCloseIsIgnored(t *testing.T) {
	st := &memStore{}
	r := NewRecorder(st, nil, 4)
	r.Close()
	r.Record(context.Background(), models.AnalyticsEvent{EventName: EventTierView})
	r.Close()
	if len(st.events) != 0 {
		t.Fatalf("unexpected events after close: %d", len(st.events))
	}
}
