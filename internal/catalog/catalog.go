// Package catalog loads tier and reward definitions from YAML and writes
// them to the store.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"FortuneBox/internal/logger"
	"FortuneBox/internal/models"
	"FortuneBox/internal/selector"
	"FortuneBox/internal/store"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type TierSpec struct {
	models.Tier `yaml:",inline"`
	Rewards     []models.Reward `yaml:"rewards"`
}

type Catalog struct {
	Tiers []TierSpec `yaml:"tiers"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks codes, prices and that every active tier's active rewards
// form a probability distribution.
func (c *Catalog) Validate() error {
	seen := map[string]bool{}
	for i, t := range c.Tiers {
		code := strings.TrimSpace(t.Code)
		if code == "" {
			return fmt.Errorf("tier %d: code is required", i)
		}
		if seen[code] {
			return fmt.Errorf("tier %s: duplicate code", code)
		}
		seen[code] = true
		if t.Price <= 0 {
			return fmt.Errorf("tier %s: price must be positive", code)
		}
		if !t.IsActive {
			continue
		}
		var active []models.Reward
		names := map[string]bool{}
		for _, r := range t.Rewards {
			if names[r.Name] {
				return fmt.Errorf("tier %s: duplicate reward %q", code, r.Name)
			}
			names[r.Name] = true
			if r.IsActive {
				active = append(active, r)
			}
		}
		if err := selector.Validate(active); err != nil {
			return fmt.Errorf("tier %s: %w", code, err)
		}
	}
	return nil
}

// Apply upserts every tier and reward. Tiers are matched by code and rewards
// by name within their tier.
func (c *Catalog) Apply(ctx context.Context, st store.Store) error {
	for _, ts := range c.Tiers {
		tier := ts.Tier
		if err := st.UpsertTier(ctx, &tier); err != nil {
			return fmt.Errorf("upsert tier %s: %w", tier.Code, err)
		}
		for _, r := range ts.Rewards {
			reward := r
			reward.TierID = tier.ID
			if err := st.UpsertReward(ctx, &reward); err != nil {
				return fmt.Errorf("upsert reward %s/%s: %w", tier.Code, reward.Name, err)
			}
		}
		logger.Info("catalog tier applied", zap.String("tier_code", tier.Code), zap.Int("rewards", len(ts.Rewards)))
	}
	return nil
}
