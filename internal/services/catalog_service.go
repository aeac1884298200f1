package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"FortuneBox/internal/analytics"
	"FortuneBox/internal/models"
	"FortuneBox/internal/store"
)

// CatalogService serves the read-only tier and reward catalog.
type CatalogService struct {
	Store  store.Store
	Events Recorder
}

func (s CatalogService) record(ctx context.Context, name, tierCode string) {
	if s.Events != nil {
		s.Events.Record(ctx, models.AnalyticsEvent{EventName: name, TierCode: tierCode})
	}
}

func (s CatalogService) ListTiers(ctx context.Context) ([]models.Tier, error) {
	tiers, err := s.Store.ListActiveTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	s.record(ctx, analytics.EventTierView, "")
	return tiers, nil
}

func (s CatalogService) tier(ctx context.Context, code string) (*models.Tier, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrTierNotFound
	}
	tier, err := s.Store.GetActiveTierByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tier: %w", err)
	}
	return tier, nil
}

// GetTier returns the tier with its active rewards in display order.
func (s CatalogService) GetTier(ctx context.Context, code string) (*models.TierWithRewards, error) {
	tier, err := s.tier(ctx, code)
	if err != nil {
		return nil, err
	}
	rewards, err := s.Store.ListActiveRewards(ctx, tier.ID, store.ByDisplayOrder)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	s.record(ctx, analytics.EventTierClick, tier.Code)
	return &models.TierWithRewards{Tier: *tier, Rewards: rewards}, nil
}

// GetProbabilities returns the tier with its active rewards, most likely first.
func (s CatalogService) GetProbabilities(ctx context.Context, code string) (*models.TierWithRewards, error) {
	tier, err := s.tier(ctx, code)
	if err != nil {
		return nil, err
	}
	rewards, err := s.Store.ListActiveRewards(ctx, tier.ID, store.ByProbabilityDesc)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	s.record(ctx, analytics.EventProbabilityView, tier.Code)
	return &models.TierWithRewards{Tier: *tier, Rewards: rewards}, nil
}
