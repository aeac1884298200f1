package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"FortuneBox/internal/models"
	"FortuneBox/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fortunebox.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTier(t *testing.T, s *Store) (*models.Tier, []models.Reward) {
	t.Helper()
	ctx := context.Background()
	tier := &models.Tier{Code: "GOLD", Name: "골드", Price: 30000, MaxReward: 500000, DisplayOrder: 2, IsActive: true}
	if err := s.UpsertTier(ctx, tier); err != nil {
		t.Fatalf("upsert tier: %v", err)
	}
	specs := []struct {
		name  string
		value int64
		prob  float64
	}{
		{"Jackpot", 500000, 0.01},
		{"Big", 100000, 0.09},
		{"Medium", 40000, 0.3},
		{"Small", 10000, 0.6},
	}
	var rewards []models.Reward
	for i, sp := range specs {
		r := &models.Reward{TierID: tier.ID, Name: sp.name, Value: sp.value, Probability: sp.prob, DisplayOrder: i + 1, IsActive: true, IsJackpot: i == 0}
		if err := s.UpsertReward(ctx, r); err != nil {
			t.Fatalf("upsert reward: %v", err)
		}
		rewards = append(rewards, *r)
	}
	return tier, rewards
}

func createOrder(t *testing.T, s *Store, tier *models.Tier, number string) *models.Order {
	t.Helper()
	o := &models.Order{OrderNumber: number, TierID: tier.ID, TierCode: tier.Code, Price: tier.Price, Status: models.OrderPaymentPending}
	if err := s.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestCatalogQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, _ := seedTier(t, s)

	inactive := &models.Tier{Code: "OLD", Name: "old", Price: 1000, IsActive: false}
	if err := s.UpsertTier(ctx, inactive); err != nil {
		t.Fatalf("upsert tier: %v", err)
	}

	tiers, err := s.ListActiveTiers(ctx)
	if err != nil {
		t.Fatalf("list tiers: %v", err)
	}
	if len(tiers) != 1 || tiers[0].Code != "GOLD" {
		t.Fatalf("unexpected tiers: %+v", tiers)
	}
	if _, err := s.GetActiveTierByCode(ctx, "OLD"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for inactive tier, got %v", err)
	}

	byDisplay, err := s.ListActiveRewards(ctx, tier.ID, store.ByDisplayOrder)
	if err != nil {
		t.Fatalf("list rewards: %v", err)
	}
	if byDisplay[0].Name != "Jackpot" || !byDisplay[0].IsJackpot {
		t.Fatalf("unexpected first reward: %+v", byDisplay[0])
	}
	byProb, err := s.ListActiveRewards(ctx, tier.ID, store.ByProbabilityDesc)
	if err != nil {
		t.Fatalf("list rewards: %v", err)
	}
	if byProb[0].Name != "Small" || byProb[3].Name != "Jackpot" {
		t.Fatalf("unexpected probability order: %s..%s", byProb[0].Name, byProb[3].Name)
	}
}

func TestUpsertTierKeepsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, _ := seedTier(t, s)

	again := &models.Tier{Code: "GOLD", Name: "Gold v2", Price: 35000, IsActive: true}
	if err := s.UpsertTier(ctx, again); err != nil {
		t.Fatalf("upsert tier: %v", err)
	}
	if again.ID != tier.ID {
		t.Fatalf("unexpected id: got=%d want=%d", again.ID, tier.ID)
	}
	got, err := s.GetTier(ctx, tier.ID)
	if err != nil {
		t.Fatalf("get tier: %v", err)
	}
	if got.Price != 35000 || got.Name != "Gold v2" {
		t.Fatalf("tier not updated: %+v", got)
	}
}

func TestCreateOrderDuplicateNumber(t *testing.T) {
	s := openTestStore(t)
	tier, _ := seedTier(t, s)
	createOrder(t, s, tier, "FB20250101-000001")

	dup := &models.Order{OrderNumber: "FB20250101-000001", TierID: tier.ID, TierCode: tier.Code, Price: tier.Price, Status: models.OrderPaymentPending}
	if err := s.CreateOrder(context.Background(), dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestOrderTransitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, rewards := seedTier(t, s)
	o := createOrder(t, s, tier, "FB20250101-000002")

	if ok, err := s.MarkBroken(ctx, o.ID, rewards[0].ID, time.Now()); err != nil || ok {
		t.Fatalf("break before payment: ok=%v err=%v", ok, err)
	}

	paidAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	ok, err := s.MarkPaid(ctx, o.ID, models.Payment{Method: "card", TransactionID: "TXN-1", PaidAt: paidAt})
	if err != nil || !ok {
		t.Fatalf("mark paid: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.MarkPaid(ctx, o.ID, models.Payment{Method: "card", TransactionID: "TXN-2", PaidAt: paidAt}); ok {
		t.Fatal("second payment should not apply")
	}

	ok, err = s.MarkBroken(ctx, o.ID, rewards[2].ID, paidAt.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("mark broken: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.MarkBroken(ctx, o.ID, rewards[1].ID, paidAt); ok {
		t.Fatal("second break should not apply")
	}
	if ok, _ := s.MarkRefunded(ctx, o.ID, models.Refund{Reason: "x", Amount: o.Price, RefundedAt: paidAt}); ok {
		t.Fatal("refund after break should not apply")
	}

	got, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != models.OrderBroken || !got.IsBroken {
		t.Fatalf("unexpected state: status=%s broken=%v", got.Status, got.IsBroken)
	}
	if got.RewardID == nil || *got.RewardID != rewards[2].ID {
		t.Fatalf("unexpected reward: %v", got.RewardID)
	}
	if got.PaymentTransactionID != "TXN-1" || got.PaymentAt == nil || !got.PaymentAt.Equal(paidAt) {
		t.Fatalf("unexpected payment fields: %+v", got)
	}
}

func TestMarkRefunded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, _ := seedTier(t, s)
	o := createOrder(t, s, tier, "FB20250101-000003")
	now := time.Now()

	if ok, _ := s.MarkRefunded(ctx, o.ID, models.Refund{Reason: "x", Amount: o.Price, RefundedAt: now}); ok {
		t.Fatal("refund of unpaid order should not apply")
	}
	if _, err := s.MarkPaid(ctx, o.ID, models.Payment{Method: "card", TransactionID: "T", PaidAt: now}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	ok, err := s.MarkRefunded(ctx, o.ID, models.Refund{Reason: "changed mind", Amount: o.Price, RefundedAt: now})
	if err != nil || !ok {
		t.Fatalf("mark refunded: ok=%v err=%v", ok, err)
	}
	got, _ := s.GetOrder(ctx, o.ID)
	if got.Status != models.OrderRefunded || got.RefundAmount == nil || *got.RefundAmount != 30000 {
		t.Fatalf("unexpected refund state: %+v", got)
	}
}

func TestCancelStalePending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, _ := seedTier(t, s)

	old := &models.Order{OrderNumber: "FB-old", TierID: tier.ID, TierCode: tier.Code, Price: tier.Price, Status: models.OrderPaymentPending, CreatedAt: time.Now().Add(-2 * time.Hour)}
	if err := s.CreateOrder(ctx, old); err != nil {
		t.Fatalf("create order: %v", err)
	}
	fresh := createOrder(t, s, tier, "FB-fresh")

	ids, err := s.CancelStalePending(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(ids) != 1 || ids[0] != old.ID {
		t.Fatalf("unexpected cancelled ids: %v", ids)
	}
	got, _ := s.GetOrder(ctx, fresh.ID)
	if got.Status != models.OrderPaymentPending {
		t.Fatalf("fresh order changed: %s", got.Status)
	}
}

func TestUpsertShippingMovesBrokenOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, rewards := seedTier(t, s)
	o := createOrder(t, s, tier, "FB20250101-000004")
	now := time.Now()
	if _, err := s.MarkPaid(ctx, o.ID, models.Payment{Method: "card", TransactionID: "T", PaidAt: now}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := s.MarkBroken(ctx, o.ID, rewards[3].ID, now); err != nil {
		t.Fatalf("mark broken: %v", err)
	}

	sh := &models.Shipping{OrderID: o.ID, RecipientName: "Kim", RecipientPhone: "010-0000-0000", Address: "Seoul"}
	created, err := s.UpsertShipping(ctx, sh)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	if sh.ID == 0 || sh.ShippingStatus != models.ShippingPending {
		t.Fatalf("unexpected shipping: %+v", sh)
	}
	firstID := sh.ID

	update := &models.Shipping{OrderID: o.ID, RecipientName: "Lee", RecipientPhone: "010-1111-1111", Address: "Busan", ShippingMemo: "door"}
	created, err = s.UpsertShipping(ctx, update)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	if update.ID != firstID || update.RecipientName != "Lee" {
		t.Fatalf("unexpected updated shipping: %+v", update)
	}

	got, _ := s.GetOrder(ctx, o.ID)
	if got.Status != models.OrderShipping {
		t.Fatalf("unexpected order status: got=%s want=%s", got.Status, models.OrderShipping)
	}
	sh2, err := s.GetShipping(ctx, o.ID)
	if err != nil || sh2.Address != "Busan" {
		t.Fatalf("get shipping: %+v err=%v", sh2, err)
	}
	if _, err := s.GetShipping(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRecentOrdersJoinsReward(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tier, rewards := seedTier(t, s)
	first := createOrder(t, s, tier, "FB-1")
	second := createOrder(t, s, tier, "FB-2")
	now := time.Now()
	_, _ = s.MarkPaid(ctx, first.ID, models.Payment{Method: "card", TransactionID: "T", PaidAt: now})
	_, _ = s.MarkBroken(ctx, first.ID, rewards[1].ID, now)

	list, err := s.ListRecentOrders(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	list, _ = s.ListRecentOrders(ctx, 10)
	if len(list) != 2 {
		t.Fatalf("unexpected count: got=%d want=2", len(list))
	}
	last := list[1]
	if last.TierName != "골드" || last.RewardName == nil || *last.RewardName != "Big" {
		t.Fatalf("unexpected joined fields: %+v", last)
	}
	if list[0].RewardName != nil {
		t.Fatalf("unbroken order has reward: %v", *list[0].RewardName)
	}
}

func TestInsertEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	orderID := int64(42)
	if err := s.InsertEvent(ctx, models.AnalyticsEvent{EventName: "tier_view", TierCode: "GOLD"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertEvent(ctx, models.AnalyticsEvent{EventName: "reward_reveal", OrderID: &orderID, EventData: `{"reward_id":1}`}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	events, err := s.ListEvents(ctx, "reward_reveal")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].OrderID == nil || *events[0].OrderID != 42 {
		t.Fatalf("unexpected events: %+v", events)
	}
	all, _ := s.ListEvents(ctx, "")
	if len(all) != 2 {
		t.Fatalf("unexpected event count: got=%d want=2", len(all))
	}
}
