// Package store defines the persistence contract for catalog, orders,
// shipping and analytics. Implementations live in the postgres and sqlite
// subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"FortuneBox/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// RewardOrder selects how active rewards are sorted.
type RewardOrder int

const (
	ByDisplayOrder RewardOrder = iota
	ByProbabilityDesc
)

type Store interface {
	ListActiveTiers(ctx context.Context) ([]models.Tier, error)
	GetActiveTierByCode(ctx context.Context, code string) (*models.Tier, error)
	GetTier(ctx context.Context, id int64) (*models.Tier, error)
	ListActiveRewards(ctx context.Context, tierID int64, order RewardOrder) ([]models.Reward, error)
	GetReward(ctx context.Context, id int64) (*models.Reward, error)
	// UpsertTier inserts or updates a tier by code and sets its ID.
	UpsertTier(ctx context.Context, tier *models.Tier) error
	// UpsertReward inserts or updates a reward by (tier_id, reward_name) and sets its ID.
	UpsertReward(ctx context.Context, reward *models.Reward) error

	// CreateOrder inserts the order and sets its ID. A clashing order number
	// yields ErrDuplicate.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]models.OrderSummary, error)

	// The Mark* methods are compare-and-set transitions. They report false
	// when the row was not in the expected state, leaving it untouched.
	MarkPaid(ctx context.Context, orderID int64, p models.Payment) (bool, error)
	MarkBroken(ctx context.Context, orderID, rewardID int64, at time.Time) (bool, error)
	MarkRefunded(ctx context.Context, orderID int64, r models.Refund) (bool, error)
	// CancelStalePending cancels payment_pending orders created before cutoff
	// and returns their IDs.
	CancelStalePending(ctx context.Context, cutoff time.Time) ([]int64, error)

	// UpsertShipping writes the shipping record for s.OrderID and, in the same
	// transaction, moves a broken order to shipping. created reports whether
	// a new record was inserted.
	UpsertShipping(ctx context.Context, s *models.Shipping) (created bool, err error)
	GetShipping(ctx context.Context, orderID int64) (*models.Shipping, error)

	InsertEvent(ctx context.Context, evt models.AnalyticsEvent) error

	Close() error
}
