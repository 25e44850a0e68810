// Package survival computes the time-decayed survival score that ranks
// issues and decides pruning eligibility: S = (Q + 1) / (age + 2)^1.5.
package survival

import (
	"math"
	"time"
)

const (
	// GracePeriod keeps the score finite and moderate at age zero.
	GracePeriod = 2.0
	// BaseQuality shifts q_score so junk-penalized issues still score > 0.
	BaseQuality = 1.0
	// Gravity controls how fast old issues sink.
	Gravity = 1.5
)

// Score computes the survival score for a quality score and an age in
// fractional days. Monotonically increasing in qScore and decreasing in
// daysOld. Negative qScore values are valid inputs.
func Score(qScore, daysOld float64) float64 {
	return (qScore + BaseQuality) / math.Pow(daysOld+GracePeriod, Gravity)
}

// DaysSince returns the fractional days elapsed from t to now.
// Zero-offset (naive) timestamps are treated as UTC.
func DaysSince(t time.Time) float64 {
	return time.Since(t.UTC()).Seconds() / 86400.0
}
