package budget

import (
	"log/slog"
	"slices"

	"github.com/lysyi3m/daily-briefing/app/content"
)

// Limiter evicts the oldest items of a topic until its serialized payload
// fits the token budget. The newest item always survives.
type Limiter struct {
	Topic       string
	ContentType string
	Estimator   Estimator
}

func NewLimiter(topic, contentType string) *Limiter {
	return &Limiter{
		Topic:       topic,
		ContentType: contentType,
		Estimator:   NewEstimator(),
	}
}

// Measure returns the token cost of items as one payload.
func (l *Limiter) Measure(items []content.Item) int {
	data, err := Serialize(l.Topic, l.ContentType, items)
	if err != nil {
		slog.Error("Failed to measure payload", "topic", l.Topic, "error", err)
		return 0
	}
	return l.Estimator.Estimate(string(data))
}

// Limit returns items sorted oldest first, trimmed from the front until the
// payload costs at most budget tokens or a single item is left. The input
// slice is not modified.
func (l *Limiter) Limit(items []content.Item, budget int) []content.Item {
	if len(items) == 0 {
		return items
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b content.Item) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	total := l.Measure(sorted)
	initial := len(sorted)

	for total > budget && len(sorted) > 1 {
		slog.Debug("Evicting oldest item",
			"topic", l.Topic,
			"title", sorted[0].Title,
			"timestamp", sorted[0].Timestamp,
			"tokens", total,
			"budget", budget)
		sorted = sorted[1:]
		total = l.Measure(sorted)
	}

	slog.Info("Token budget applied",
		"topic", l.Topic,
		"items", initial,
		"kept", len(sorted),
		"tokens", total,
		"budget", budget)

	return sorted
}
