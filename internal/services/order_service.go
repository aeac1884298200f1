package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FortuneBox/internal/analytics"
	"FortuneBox/internal/logger"
	"FortuneBox/internal/models"
	"FortuneBox/internal/payments"
	"FortuneBox/internal/pricing"
	"FortuneBox/internal/selector"
	"FortuneBox/internal/store"

	"go.uber.org/zap"
)

const defaultRefundReason = "User requested"

// Recorder receives best-effort analytics events.
type Recorder interface {
	Record(ctx context.Context, evt models.AnalyticsEvent)
}

type OrderService struct {
	Store    store.Store
	Payments payments.Gateway
	Events   Recorder
	// Source feeds the reward selector; nil uses selector.DefaultSource.
	Source           selector.Source
	Numbers          NumberGenerator
	NumberAttempts   int
	DefaultListLimit int
	MaxListLimit     int
	Now              func() time.Time
}

// BreakResult is the outcome of breaking a box.
type BreakResult struct {
	Order    *models.Order
	Reward   models.Reward
	Fallback bool
}

func (s OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s OrderService) record(ctx context.Context, evt models.AnalyticsEvent) {
	if s.Events != nil {
		s.Events.Record(ctx, evt)
	}
}

// CreateOrder opens a payment_pending order for the active tier code, with
// the tier price snapshotted onto it.
func (s OrderService) CreateOrder(ctx context.Context, tierCode string) (*models.Order, error) {
	tierCode = strings.TrimSpace(tierCode)
	if tierCode == "" {
		return nil, ErrMissingTierCode
	}

	tier, err := s.Store.GetActiveTierByCode(ctx, tierCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tier: %w", err)
	}

	snap := pricing.CurrentSnapshot(*tier)
	client := analytics.ClientFrom(ctx)
	numbers := s.Numbers
	if numbers == nil {
		numbers = NewNumberGenerator("FB", 6)
	}
	attempts := s.NumberAttempts
	if attempts <= 0 {
		attempts = 5
	}

	now := s.now()
	var order *models.Order
	for i := 0; i < attempts; i++ {
		number, err := numbers(now)
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}
		candidate := &models.Order{
			OrderNumber: number,
			TierID:      tier.ID,
			TierCode:    snap.TierCode,
			Price:       snap.Price,
			Status:      models.OrderPaymentPending,
			UserIP:      client.IP,
			UserAgent:   client.UserAgent,
			CreatedAt:   now,
		}
		err = s.Store.CreateOrder(ctx, candidate)
		if errors.Is(err, store.ErrDuplicate) {
			logger.Debug("order number collision", zap.String("order_number", number), zap.Int("attempt", i+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		order = candidate
		break
	}
	if order == nil {
		logger.Warn("order number space exhausted", zap.String("tier_code", tierCode), zap.Int("attempts", attempts))
		return nil, ErrOrderNumberExhausted
	}

	orderID := order.ID
	s.record(ctx, models.AnalyticsEvent{
		EventName: analytics.EventCheckoutStart,
		OrderID:   &orderID,
		TierCode:  order.TierCode,
		EventData: analytics.Data(map[string]any{"price": order.Price, "order_number": order.OrderNumber}),
	})
	return order, nil
}

func (s OrderService) loadOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.Store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

// Pay charges the order through the payment gateway. A declined charge
// leaves the order payment_pending so the client may retry.
func (s OrderService) Pay(ctx context.Context, orderID int64, method, transactionID string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, models.OrderPaid) {
		return nil, ErrNotPending
	}

	res, err := s.Payments.Charge(ctx, payments.Request{
		OrderID:       order.ID,
		Amount:        order.Price,
		Method:        method,
		TransactionID: transactionID,
	})
	if errors.Is(err, payments.ErrDeclined) {
		s.record(ctx, models.AnalyticsEvent{
			EventName: analytics.EventPaymentFail,
			OrderID:   &order.ID,
			TierCode:  order.TierCode,
			EventData: analytics.Data(map[string]any{"payment_method": method, "reason": "payment_gateway_error"}),
		})
		return nil, ErrPaymentDeclined.with(err)
	}
	if err != nil {
		return nil, fmt.Errorf("charge order %d: %w", order.ID, err)
	}

	ok, err := s.Store.MarkPaid(ctx, order.ID, models.Payment{
		Method:        res.Method,
		TransactionID: res.TransactionID,
		PaidAt:        res.PaidAt,
	})
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !ok {
		// Another request moved the order first.
		return nil, ErrNotPending
	}

	s.record(ctx, models.AnalyticsEvent{
		EventName: analytics.EventPaymentSuccess,
		OrderID:   &order.ID,
		TierCode:  order.TierCode,
		EventData: analytics.Data(map[string]any{
			"payment_method": res.Method,
			"transaction_id": res.TransactionID,
			"amount":         order.Price,
		}),
	})
	return s.loadOrder(ctx, order.ID)
}

// Break opens a paid box: one reward is drawn from the order's tier and
// attached to the order. At most one break succeeds per order.
func (s OrderService) Break(ctx context.Context, orderID int64) (*BreakResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsBroken {
		return nil, ErrAlreadyBroken
	}
	if !order.CanBreak() {
		return nil, ErrNotPaid
	}

	rewards, err := s.Store.ListActiveRewards(ctx, order.TierID, store.ByDisplayOrder)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	sel, err := selector.Pick(rewards, s.Source)
	if errors.Is(err, selector.ErrNoRewardsAvailable) {
		logger.Error("tier has no active rewards", zap.Int64("tier_id", order.TierID), zap.String("tier_code", order.TierCode))
		return nil, ErrNoRewardsAvailable.with(err)
	}
	if err != nil {
		return nil, err
	}
	if sel.Fallback {
		logger.Warn("reward probabilities do not cover draw, using last reward",
			zap.String("tier_code", order.TierCode),
			zap.Float64("draw", sel.Draw),
			zap.Int64("reward_id", sel.Reward.ID))
		s.record(ctx, models.AnalyticsEvent{
			EventName: analytics.EventRewardFallback,
			OrderID:   &order.ID,
			TierCode:  order.TierCode,
			EventData: analytics.Data(map[string]any{"draw": sel.Draw, "reward_id": sel.Reward.ID}),
		})
	}

	ok, err := s.Store.MarkBroken(ctx, order.ID, sel.Reward.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark broken: %w", err)
	}
	if !ok {
		current, err := s.loadOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current.IsBroken {
			return nil, ErrAlreadyBroken
		}
		return nil, ErrNotPaid
	}

	s.record(ctx, models.AnalyticsEvent{
		EventName: analytics.EventBreakBoxStart,
		OrderID:   &order.ID,
		TierCode:  order.TierCode,
		EventData: analytics.Data(map[string]any{
			"reward_id":    sel.Reward.ID,
			"reward_name":  sel.Reward.Name,
			"reward_value": sel.Reward.Value,
		}),
	})
	s.record(ctx, models.AnalyticsEvent{
		EventName: analytics.EventRewardReveal,
		OrderID:   &order.ID,
		TierCode:  order.TierCode,
		EventData: analytics.Data(map[string]any{"reward_id": sel.Reward.ID, "is_jackpot": sel.Reward.IsJackpot}),
	})

	updated, err := s.loadOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &BreakResult{Order: updated, Reward: sel.Reward, Fallback: sel.Fallback}, nil
}

// Refund returns the full price of a paid, unbroken order.
func (s OrderService) Refund(ctx context.Context, orderID int64, reason string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanRefund() {
		return nil, ErrRefundNotAllowed
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRefundReason
	}
	amount := pricing.RefundAmount(*order)
	ok, err := s.Store.MarkRefunded(ctx, order.ID, models.Refund{
		Reason:     reason,
		Amount:     amount,
		RefundedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("mark refunded: %w", err)
	}
	if !ok {
		return nil, ErrRefundNotAllowed
	}

	s.record(ctx, models.AnalyticsEvent{
		EventName: analytics.EventRefundRequest,
		OrderID:   &order.ID,
		TierCode:  order.TierCode,
		EventData: analytics.Data(map[string]any{"reason": reason, "amount": amount}),
	})
	s.record(ctx, models.AnalyticsEvent{
		EventName: analytics.EventRefundSuccess,
		OrderID:   &order.ID,
		TierCode:  order.TierCode,
		EventData: analytics.Data(map[string]any{"amount": amount}),
	})
	return s.loadOrder(ctx, order.ID)
}

// GetOrder returns the order joined with its tier, reward and shipping.
func (s OrderService) GetOrder(ctx context.Context, orderID int64) (*models.OrderDetails, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	details := &models.OrderDetails{Order: *order}

	tier, err := s.Store.GetTier(ctx, order.TierID)
	switch {
	case err == nil:
		details.Tier = tier
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load tier: %w", err)
	}

	if order.RewardID != nil {
		reward, err := s.Store.GetReward(ctx, *order.RewardID)
		switch {
		case err == nil:
			details.Reward = reward
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("load reward: %w", err)
		}
	}

	shipping, err := s.Store.GetShipping(ctx, order.ID)
	switch {
	case err == nil:
		details.Shipping = shipping
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load shipping: %w", err)
	}
	return details, nil
}

// ListRecent returns the newest orders. limit <= 0 selects the default;
// larger values are clamped to the maximum.
func (s OrderService) ListRecent(ctx context.Context, limit int) ([]models.OrderSummary, error) {
	return s.Store.ListRecentOrders(ctx, s.clampLimit(limit))
}

func (s OrderService) clampLimit(limit int) int {
	def, maxLimit := s.DefaultListLimit, s.MaxListLimit
	if def <= 0 {
		def = 50
	}
	if maxLimit <= 0 {
		maxLimit = 200
	}
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
