package tier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"mint-game-backend/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestClassify_Boundaries(t *testing.T) {
	c := NewClassifier(Thresholds{})
	valid := ptr(model.ValidationValid)

	tests := []struct {
		score float64
		want  int
	}{
		{300, 0},
		{299, 1},
		{100, 1},
		{99, 2},
		{50, 2},
		{49, 3},
		{0, 3},
		{100000, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(ptr(tt.score), valid), "score %f", tt.score)
	}
}

func TestClassify_FailClosed(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	t.Run("invalid verdict beats any score", func(t *testing.T) {
		assert.Equal(t, TierLowest, c.Classify(ptr(10000.0), ptr(model.ValidationInvalid)))
	})

	t.Run("absent score", func(t *testing.T) {
		assert.Equal(t, TierLowest, c.Classify(nil, ptr(model.ValidationValid)))
	})

	t.Run("non-finite score", func(t *testing.T) {
		assert.Equal(t, TierLowest, c.Classify(ptr(math.NaN()), ptr(model.ValidationValid)))
		assert.Equal(t, TierLowest, c.Classify(ptr(math.Inf(1)), ptr(model.ValidationValid)))
	})

	t.Run("no verdict yet still classifies", func(t *testing.T) {
		assert.Equal(t, 0, c.Classify(ptr(400.0), nil))
	})
}

// TestClassifyMonotonicProperty checks that for any fixed validation result,
// a higher score never yields a worse tier.
func TestClassifyMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewClassifier(DefaultThresholds())

		lower := rapid.Float64Range(0, 10000).Draw(t, "lower")
		bump := rapid.Float64Range(0, 10000).Draw(t, "bump")
		higher := lower + bump

		result := rapid.SampledFrom([]*string{
			ptr(model.ValidationValid),
			ptr(model.ValidationInvalid),
			nil,
		}).Draw(t, "result")

		tierLow := c.Classify(&lower, result)
		tierHigh := c.Classify(&higher, result)

		if tierHigh > tierLow {
			t.Fatalf("tier worsened with score: score %f -> tier %d, score %f -> tier %d",
				lower, tierLow, higher, tierHigh)
		}
	})
}
