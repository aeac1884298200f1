// Package report renders catalog odds and recent orders as text tables.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"FortuneBox/internal/models"
	"FortuneBox/internal/pricing"
	"FortuneBox/internal/store"

	"github.com/olekukonko/tablewriter"
)

// Odds writes one row per active reward of every active tier, most likely
// first within each tier.
func Odds(ctx context.Context, w io.Writer, st store.Store) error {
	tiers, err := st.ListActiveTiers(ctx)
	if err != nil {
		return fmt.Errorf("list tiers: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Tier", "Price", "Reward", "Value", "Odds", "Jackpot")
	for _, t := range tiers {
		rewards, err := st.ListActiveRewards(ctx, t.ID, store.ByProbabilityDesc)
		if err != nil {
			return fmt.Errorf("list rewards for %s: %w", t.Code, err)
		}
		for _, r := range rewards {
			jackpot := ""
			if r.IsJackpot {
				jackpot = "yes"
			}
			if err := table.Append([]string{
				t.Code,
				pricing.Format(t.Price),
				r.Name,
				pricing.Format(r.Value),
				strconv.FormatFloat(r.Probability*100, 'f', 2, 64) + "%",
				jackpot,
			}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

// RecentOrders writes the newest orders, up to limit.
func RecentOrders(ctx context.Context, w io.Writer, st store.Store, limit int) error {
	orders, err := st.ListRecentOrders(ctx, limit)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Order", "Tier", "Price", "Status", "Reward", "Created")
	for _, o := range orders {
		if err := table.Append([]string{
			o.OrderNumber,
			o.TierCode,
			pricing.Format(o.Price),
			string(o.Status),
			rewardLabel(o),
			o.CreatedAt.Format("2006-01-02 15:04"),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func rewardLabel(o models.OrderSummary) string {
	if o.RewardName == nil {
		return "-"
	}
	if o.RewardValue == nil {
		return *o.RewardName
	}
	return *o.RewardName + " (" + pricing.Format(*o.RewardValue) + ")"
}
