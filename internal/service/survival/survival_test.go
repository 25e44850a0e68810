package survival

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScoreAtAgeZero(t *testing.T) {
	// (0.8 + 1.0) / 2^1.5
	want := 1.8 / math.Pow(2, 1.5)
	assert.InDelta(t, want, Score(0.8, 0), 1e-9)
	assert.InDelta(t, 0.6364, Score(0.8, 0), 1e-3)
}

func TestScoreDecreasesWithAge(t *testing.T) {
	prev := Score(0.8, 0)
	for _, age := range []float64{1, 7, 30, 365} {
		s := Score(0.8, age)
		assert.Less(t, s, prev, "score should strictly decrease at age %v", age)
		prev = s
	}
}

func TestScoreIncreasesWithQuality(t *testing.T) {
	prev := Score(-0.5, 10)
	for _, q := range []float64{0.0, 0.3, 0.6, 0.9} {
		s := Score(q, 10)
		assert.Greater(t, s, prev, "score should strictly increase at q %v", q)
		prev = s
	}
}

func TestScoreFiniteAndPositive(t *testing.T) {
	for _, q := range []float64{-0.5, 0, 0.9} {
		for _, age := range []float64{0, 0.5, 100, 10000} {
			s := Score(q, age)
			assert.False(t, math.IsInf(s, 0) || math.IsNaN(s), "q=%v age=%v", q, age)
			assert.Greater(t, s, 0.0, "q=%v age=%v", q, age)
		}
	}
}

func TestDecayOrdering(t *testing.T) {
	// The decay ordering the janitor and rankers both rely on.
	atZero := Score(0.8, 0)
	atOne := Score(0.8, 1)
	atThirty := Score(0.8, 30)
	assert.Greater(t, atZero, atOne)
	assert.Greater(t, atOne, atThirty)
}

func TestDaysSince(t *testing.T) {
	halfDayAgo := time.Now().UTC().Add(-12 * time.Hour)
	got := DaysSince(halfDayAgo)
	assert.InDelta(t, 0.5, got, 0.01)

	// Future timestamps yield a small negative age; Score must stay finite.
	future := time.Now().UTC().Add(time.Hour)
	assert.Less(t, DaysSince(future), 0.0)
	assert.Greater(t, Score(0.8, DaysSince(future)), 0.0)
}
