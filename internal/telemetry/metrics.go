package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds the ranking engine's instruments. With OTEL disabled
// the global meter provider is a no-op, so recording is always safe.
type EngineMetrics struct {
	Searches     metric.Int64Counter
	FeedPages    metric.Int64Counter
	PrunedIssues metric.Int64Counter
}

// NewEngineMetrics registers the engine instruments on the global meter.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := Meter("gitmatch/engine")

	searches, err := meter.Int64Counter("gitmatch.searches",
		metric.WithDescription("Hybrid search requests served"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create searches counter: %w", err)
	}
	feedPages, err := meter.Int64Counter("gitmatch.feed_pages",
		metric.WithDescription("Feed pages served"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create feed pages counter: %w", err)
	}
	pruned, err := meter.Int64Counter("gitmatch.pruned_issues",
		metric.WithDescription("Issues deleted by the janitor"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create pruned issues counter: %w", err)
	}

	return &EngineMetrics{
		Searches:     searches,
		FeedPages:    feedPages,
		PrunedIssues: pruned,
	}, nil
}
