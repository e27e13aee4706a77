// Package tier maps a validated score to a discrete purchase-price tier.
package tier

import (
	"math"

	"mint-game-backend/internal/model"
)

// Tier bounds. Tier 0 is the best discount, Tier 3 the worst; every
// fail-closed path lands on TierLowest.
const (
	TierBest   = 0
	TierLowest = 3
)

// Thresholds holds the inclusive lower bounds of the tier bands, best first.
type Thresholds struct {
	Tier0 float64
	Tier1 float64
	Tier2 float64
}

// DefaultThresholds returns the production tier bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Tier0: 300, Tier1: 100, Tier2: 50}
}

// Classifier assigns price tiers from scores and verdicts.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a Classifier. Zero-valued thresholds fall back to
// the defaults.
func NewClassifier(t Thresholds) *Classifier {
	if t == (Thresholds{}) {
		t = DefaultThresholds()
	}
	return &Classifier{thresholds: t}
}

// Classify returns the tier for a score and validation result. An INVALID
// verdict, an absent score, or a non-finite score maps to the lowest tier.
// Bands are evaluated high-to-low, inclusive on the lower bound, first
// match winning.
func (c *Classifier) Classify(score *float64, validationResult *string) int {
	if validationResult != nil && *validationResult == model.ValidationInvalid {
		return TierLowest
	}
	if score == nil || math.IsNaN(*score) || math.IsInf(*score, 0) {
		return TierLowest
	}

	switch s := *score; {
	case s >= c.thresholds.Tier0:
		return 0
	case s >= c.thresholds.Tier1:
		return 1
	case s >= c.thresholds.Tier2:
		return 2
	default:
		return TierLowest
	}
}
