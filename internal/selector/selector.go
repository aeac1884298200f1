// Package selector picks one reward out of a tier's weighted reward set.
package selector

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"FortuneBox/internal/models"
)

var ErrNoRewardsAvailable = errors.New("no rewards available")

// Tolerance is how far a probability sum may drift from 1.
const Tolerance = 1e-9

// Source yields uniform draws in [0,1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() float64

func (f SourceFunc) Float64() float64 { return f() }

// DefaultSource draws from the runtime's randomly seeded generator and is
// safe for concurrent use.
var DefaultSource Source = SourceFunc(rand.Float64)

type Selection struct {
	Reward models.Reward
	Draw   float64
	// Fallback is set when no cumulative bucket covered the draw and the last
	// reward was returned instead. It means the tier's probabilities are off.
	Fallback bool
}

// Pick walks rewards in order and returns the first whose running
// probability sum reaches the draw.
func Pick(rewards []models.Reward, src Source) (Selection, error) {
	if len(rewards) == 0 {
		return Selection{}, ErrNoRewardsAvailable
	}
	if src == nil {
		src = DefaultSource
	}
	return pickWith(rewards, src.Float64()), nil
}

func pickWith(rewards []models.Reward, draw float64) Selection {
	cumulative := 0.0
	for _, r := range rewards {
		cumulative += r.Probability
		if cumulative >= draw {
			return Selection{Reward: r, Draw: draw}
		}
	}
	return Selection{Reward: rewards[len(rewards)-1], Draw: draw, Fallback: true}
}

// Validate checks that every probability is in (0,1] and that they sum to 1.
func Validate(rewards []models.Reward) error {
	if len(rewards) == 0 {
		return ErrNoRewardsAvailable
	}
	sum := 0.0
	for _, r := range rewards {
		if r.Probability <= 0 || r.Probability > 1 {
			return fmt.Errorf("reward %q: probability %v out of range (0,1]", r.Name, r.Probability)
		}
		sum += r.Probability
	}
	if math.Abs(sum-1) > Tolerance {
		return fmt.Errorf("probabilities sum to %v, want 1", sum)
	}
	return nil
}
