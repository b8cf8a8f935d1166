package content

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

type PageOptions struct {
	Name      string
	URL       string
	Extractor *Extractor
	Cleanup   Cleanup
	Location  *time.Location
}

// PageAdapter scrapes one fixed page, such as a daily column that always
// lives at the same address.
type PageAdapter struct {
	opts    PageOptions
	fetcher *Fetcher
}

func NewPageAdapter(fetcher *Fetcher, opts PageOptions) *PageAdapter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Extractor == nil {
		opts.Extractor = &Extractor{Readability: true}
	}
	if opts.Extractor.Location == nil {
		opts.Extractor.Location = opts.Location
	}
	return &PageAdapter{opts: opts, fetcher: fetcher}
}

func (a *PageAdapter) Name() string {
	return a.opts.Name
}

func (a *PageAdapter) Fetch(ctx context.Context, window timeframe.Window) []Item {
	data, err := a.fetcher.Get(ctx, a.opts.URL)
	if err != nil {
		slog.Error("Failed to fetch page", "source", a.opts.Name, "url", a.opts.URL, "error", err)
		return []Item{}
	}

	return collect(a.opts.Name, []entryResult{a.normalize(window, data)})
}

func (a *PageAdapter) normalize(window timeframe.Window, data []byte) entryResult {
	extracted, err := a.opts.Extractor.Run(data, a.opts.URL)
	if err != nil {
		return failed(fmt.Errorf("page %s: %w", a.opts.URL, err))
	}

	if extracted.Published.IsZero() {
		return failed(fmt.Errorf("page %s: %w", a.opts.URL, ErrNoTimestamp))
	}
	ts := extracted.Published.In(a.opts.Location)
	if !window.Contains(ts) {
		return failed(ErrOutsideWindow)
	}

	body := a.opts.Cleanup.Apply(extracted.Body)
	if body == "" {
		return failed(fmt.Errorf("page %s: %w", a.opts.URL, ErrEmptyBody))
	}

	return ok(Item{
		ID:         a.opts.URL,
		Title:      cmp.Or(extracted.Title, a.opts.Name),
		Body:       body,
		Timestamp:  ts,
		SourceName: a.opts.Name,
		Kind:       KindArticle,
		URL:        a.opts.URL,
	})
}
