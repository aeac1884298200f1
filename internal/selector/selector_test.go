package selector

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"FortuneBox/internal/models"
)

func goldRewards() []models.Reward {
	return []models.Reward{
		{ID: 1, TierID: 7, Name: "watch", Probability: 0.01, IsJackpot: true},
		{ID: 2, TierID: 7, Name: "bag", Probability: 0.09},
		{ID: 3, TierID: 7, Name: "wallet", Probability: 0.3},
		{ID: 4, TierID: 7, Name: "card", Probability: 0.6},
	}
}

func fixed(v float64) Source {
	return SourceFunc(func() float64 { return v })
}

func TestPick_NoRewards(t *testing.T) {
	_, err := Pick(nil, fixed(0.5))
	if !errors.Is(err, ErrNoRewardsAvailable) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPick_Boundaries(t *testing.T) {
	cases := []struct {
		draw float64
		want int64
	}{
		{0, 1},
		{0.01, 1}, // exact cumulative match stays in the bucket
		{0.0100001, 2},
		{0.05, 2},
		{0.35, 3},
		{0.41, 4},
		{0.999999, 4},
	}
	for _, tc := range cases {
		sel, err := Pick(goldRewards(), fixed(tc.draw))
		if err != nil {
			t.Fatalf("Pick(%v) failed: %v", tc.draw, err)
		}
		if sel.Reward.ID != tc.want {
			t.Fatalf("Pick(%v): got=%d want=%d", tc.draw, sel.Reward.ID, tc.want)
		}
		if sel.Fallback {
			t.Fatalf("Pick(%v) should not fall back", tc.draw)
		}
	}
}

func TestPick_FallbackToLast(t *testing.T) {
	rewards := []models.Reward{
		{ID: 1, Probability: 0.2},
		{ID: 2, Probability: 0.3},
	}
	sel, err := Pick(rewards, fixed(0.9))
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if sel.Reward.ID != 2 {
		t.Fatalf("unexpected reward: got=%d want=2", sel.Reward.ID)
	}
	if !sel.Fallback {
		t.Fatalf("fallback flag should be set")
	}
}

func TestPick_SingleReward(t *testing.T) {
	sel, err := Pick([]models.Reward{{ID: 9, Probability: 1}}, fixed(0.999))
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if sel.Reward.ID != 9 || sel.Fallback {
		t.Fatalf("unexpected selection: %+v", sel)
	}
}

func TestPick_StaysInTier(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))
	rewards := goldRewards()
	for i := 0; i < 10000; i++ {
		sel, err := Pick(rewards, src)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if sel.Reward.TierID != 7 {
			t.Fatalf("reward from another tier: %+v", sel.Reward)
		}
	}
}

func TestPick_Distribution(t *testing.T) {
	const n = 200000
	src := rand.New(rand.NewPCG(42, 1024))
	rewards := goldRewards()

	counts := map[int64]int{}
	for i := 0; i < n; i++ {
		sel, err := Pick(rewards, src)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		counts[sel.Reward.ID]++
	}

	for _, r := range rewards {
		got := float64(counts[r.ID]) / n
		if math.Abs(got-r.Probability) > 0.005 {
			t.Fatalf("reward %d frequency: got=%.4f want=%.4f", r.ID, got, r.Probability)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(goldRewards()); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}
	if err := Validate(nil); !errors.Is(err, ErrNoRewardsAvailable) {
		t.Fatalf("unexpected error for empty set: %v", err)
	}
	short := []models.Reward{{Name: "a", Probability: 0.5}, {Name: "b", Probability: 0.4}}
	if err := Validate(short); err == nil {
		t.Fatalf("sum below 1 should be rejected")
	}
	zero := []models.Reward{{Name: "a", Probability: 1}, {Name: "b", Probability: 0}}
	if err := Validate(zero); err == nil {
		t.Fatalf("zero probability should be rejected")
	}
	thirds := []models.Reward{{Probability: 1.0 / 3}, {Probability: 1.0 / 3}, {Probability: 1.0 / 3}}
	if err := Validate(thirds); err != nil {
		t.Fatalf("rounding within tolerance rejected: %v", err)
	}
}
