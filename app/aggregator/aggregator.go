// Package aggregator collects one topic's items from all of its sources.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/daily-briefing/app/budget"
	"github.com/lysyi3m/daily-briefing/app/content"
	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

type Topic struct {
	Title       string
	ContentType string
	TokenBudget int
}

type Aggregator struct {
	resolver *timeframe.Resolver
	now      func() time.Time
}

func New(resolver *timeframe.Resolver, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{resolver: resolver, now: now}
}

// Window resolves the collection window for the current clock.
func (a *Aggregator) Window() timeframe.Window {
	return a.resolver.Resolve(a.now())
}

// Collect resolves the window and gathers the topic's items within it.
func (a *Aggregator) Collect(ctx context.Context, topic Topic, adapters []content.Adapter) []content.Item {
	return a.CollectWindow(ctx, a.Window(), topic, adapters)
}

// CollectWindow runs every adapter in order against window, concatenates
// their items and trims the result to the topic's token budget. A failing
// adapter contributes nothing and never stops the others.
func (a *Aggregator) CollectWindow(ctx context.Context, window timeframe.Window, topic Topic, adapters []content.Adapter) []content.Item {
	start := time.Now()
	items := []content.Item{}

	for _, adapter := range adapters {
		if err := ctx.Err(); err != nil {
			slog.Warn("Collection cancelled", "topic", topic.Title, "error", err)
			break
		}

		got, err := fetch(ctx, adapter, window)
		if err != nil {
			slog.Error("Adapter failed", "topic", topic.Title, "source", adapter.Name(), "error", err)
			continue
		}
		items = append(items, got...)
	}

	tokenBudget := topic.TokenBudget
	if tokenBudget <= 0 {
		tokenBudget = budget.DefaultTokenBudget
	}
	limited := budget.NewLimiter(topic.Title, topic.ContentType).Limit(items, tokenBudget)

	slog.Info("Topic collected",
		"topic", topic.Title,
		"window", window.String(),
		"sources", len(adapters),
		"collected", len(items),
		"kept", len(limited),
		"duration", time.Since(start))

	return limited
}

// fetch turns a panicking adapter into an error.
func fetch(ctx context.Context, adapter content.Adapter, window timeframe.Window) (items []content.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panicked: %v", r)
		}
	}()
	return adapter.Fetch(ctx, window), nil
}
