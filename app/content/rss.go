package content

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

type RSSOptions struct {
	Name string
	URL  string

	// Refetch loads every kept entry's link and extracts the body with
	// Extractor instead of trusting the feed's summary.
	Refetch   bool
	Extractor *Extractor

	// LatestOnly keeps just the newest in-window entry, for newsletters that
	// publish one issue a day.
	LatestOnly bool

	// Strip lists selectors removed from the feed's own entry HTML.
	Strip []string

	Cleanup  Cleanup
	Location *time.Location
}

type RSSAdapter struct {
	opts    RSSOptions
	fetcher *Fetcher
	parser  *gofeed.Parser
}

func NewRSSAdapter(fetcher *Fetcher, opts RSSOptions) *RSSAdapter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &RSSAdapter{
		opts:    opts,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
	}
}

func (a *RSSAdapter) Name() string {
	return a.opts.Name
}

func (a *RSSAdapter) Fetch(ctx context.Context, window timeframe.Window) []Item {
	data, err := a.fetcher.Get(ctx, a.opts.URL)
	if err != nil {
		slog.Error("Failed to fetch feed", "source", a.opts.Name, "url", a.opts.URL, "error", err)
		return []Item{}
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Error("Failed to parse feed", "source", a.opts.Name, "url", a.opts.URL, "error", err)
		return []Item{}
	}

	entries := make([]*gofeed.Item, 0, len(feed.Items))
	results := make([]entryResult, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		ts, err := a.timestamp(entry)
		if err != nil {
			results = append(results, failed(fmt.Errorf("entry %q: %w", entry.Title, err)))
			continue
		}
		if !window.Contains(ts) {
			results = append(results, failed(ErrOutsideWindow))
			continue
		}
		entries = append(entries, entry)
	}

	if a.opts.LatestOnly && len(entries) > 1 {
		entries = []*gofeed.Item{a.latest(entries)}
	}

	for _, entry := range entries {
		results = append(results, a.normalize(ctx, entry))
	}

	return collect(a.opts.Name, results)
}

func (a *RSSAdapter) timestamp(entry *gofeed.Item) (time.Time, error) {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.In(a.opts.Location), nil
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.In(a.opts.Location), nil
	case entry.Published != "":
		return ParseTime(entry.Published, a.opts.Location)
	default:
		return time.Time{}, ErrNoTimestamp
	}
}

func (a *RSSAdapter) latest(entries []*gofeed.Item) *gofeed.Item {
	newest := entries[0]
	newestTS, _ := a.timestamp(newest)
	for _, entry := range entries[1:] {
		ts, _ := a.timestamp(entry)
		if ts.After(newestTS) {
			newest, newestTS = entry, ts
		}
	}
	return newest
}

func (a *RSSAdapter) normalize(ctx context.Context, entry *gofeed.Item) entryResult {
	ts, _ := a.timestamp(entry)
	link := strings.TrimSpace(entry.Link)

	item := Item{
		ID:         cmp.Or(link, entry.GUID),
		Title:      CleanText(entry.Title),
		Timestamp:  ts,
		SourceName: a.opts.Name,
		Kind:       KindArticle,
		URL:        link,
	}

	if a.opts.Refetch && link != "" {
		body, title, err := a.refetch(ctx, link)
		if err != nil {
			return failed(fmt.Errorf("entry %q: %w", link, err))
		}
		item.Body = body
		item.Title = cmp.Or(item.Title, title)
	} else {
		markup := cmp.Or(entry.Content, entry.Description)
		item.Body = StripHTML(RemoveSelectors(markup, a.opts.Strip))
	}

	item.Body = a.opts.Cleanup.Apply(item.Body)
	if item.Body == "" {
		return failed(fmt.Errorf("entry %q: %w", cmp.Or(link, item.Title), ErrEmptyBody))
	}

	return ok(item)
}

func (a *RSSAdapter) refetch(ctx context.Context, link string) (string, string, error) {
	data, err := a.fetcher.Get(ctx, link)
	if err != nil {
		return "", "", err
	}

	extractor := a.opts.Extractor
	if extractor == nil {
		extractor = &Extractor{Readability: true, Location: a.opts.Location}
	}

	extracted, err := extractor.Run(data, link)
	if err != nil {
		return "", "", err
	}
	return extracted.Body, extracted.Title, nil
}
