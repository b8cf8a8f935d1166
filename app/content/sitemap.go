package content

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

type sitemapIndex struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type urlSet struct {
	URLs []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type SitemapOptions struct {
	Name string
	// URL points at a sitemap index, or directly at a urlset.
	URL string
	// Prefix restricts which sub-sitemaps of the index are followed.
	Prefix    string
	Extractor *Extractor
	Cleanup   Cleanup
	Location  *time.Location
}

// SitemapAdapter discovers articles through lastmod dates in a site's
// sitemaps and scrapes each in-window article.
type SitemapAdapter struct {
	opts    SitemapOptions
	fetcher *Fetcher
}

func NewSitemapAdapter(fetcher *Fetcher, opts SitemapOptions) *SitemapAdapter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Extractor == nil {
		opts.Extractor = &Extractor{Readability: true}
	}
	if opts.Extractor.Location == nil {
		opts.Extractor.Location = opts.Location
	}
	return &SitemapAdapter{opts: opts, fetcher: fetcher}
}

func (a *SitemapAdapter) Name() string {
	return a.opts.Name
}

func (a *SitemapAdapter) Fetch(ctx context.Context, window timeframe.Window) []Item {
	data, err := a.fetcher.Get(ctx, a.opts.URL)
	if err != nil {
		slog.Error("Failed to fetch sitemap index", "source", a.opts.Name, "url", a.opts.URL, "error", err)
		return []Item{}
	}

	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		slog.Error("Failed to parse sitemap index", "source", a.opts.Name, "url", a.opts.URL, "error", err)
		return []Item{}
	}

	var entries []sitemapLoc
	if len(index.Sitemaps) == 0 {
		set, err := parseURLSet(data)
		if err != nil {
			slog.Error("Failed to parse sitemap", "source", a.opts.Name, "url", a.opts.URL, "error", err)
			return []Item{}
		}
		entries = set.URLs
	} else {
		entries = a.followIndex(ctx, index)
	}

	results := make([]entryResult, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		results = append(results, a.normalize(ctx, window, loc, entry.LastMod))
	}

	return collect(a.opts.Name, results)
}

func (a *SitemapAdapter) followIndex(ctx context.Context, index sitemapIndex) []sitemapLoc {
	var entries []sitemapLoc
	followed := 0

	for _, sm := range index.Sitemaps {
		loc := strings.TrimSpace(sm.Loc)
		if a.opts.Prefix != "" && !strings.HasPrefix(loc, a.opts.Prefix) {
			continue
		}
		followed++

		data, err := a.fetcher.Get(ctx, loc)
		if err != nil {
			slog.Warn("Sitemap skipped", "source", a.opts.Name, "url", loc, "error", err)
			continue
		}
		set, err := parseURLSet(data)
		if err != nil {
			slog.Warn("Sitemap skipped", "source", a.opts.Name, "url", loc, "error", err)
			continue
		}
		entries = append(entries, set.URLs...)
	}

	slog.Debug("Sitemap index processed", "source", a.opts.Name, "sitemaps", len(index.Sitemaps), "followed", followed, "urls", len(entries))
	return entries
}

func parseURLSet(data []byte) (urlSet, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return urlSet{}, fmt.Errorf("failed to parse urlset: %w", err)
	}
	return set, nil
}

func (a *SitemapAdapter) normalize(ctx context.Context, window timeframe.Window, loc, lastmod string) entryResult {
	ts, err := ParseTime(lastmod, a.opts.Location)
	if err != nil {
		return failed(fmt.Errorf("url %s: %w", loc, err))
	}
	if !window.Contains(ts) {
		return failed(ErrOutsideWindow)
	}

	data, err := a.fetcher.Get(ctx, loc)
	if err != nil {
		return failed(fmt.Errorf("url %s: %w", loc, err))
	}

	extracted, err := a.opts.Extractor.Run(data, loc)
	if err != nil {
		return failed(fmt.Errorf("url %s: %w", loc, err))
	}

	body := a.opts.Cleanup.Apply(extracted.Body)
	if body == "" {
		return failed(fmt.Errorf("url %s: %w", loc, ErrEmptyBody))
	}

	return ok(Item{
		ID:         loc,
		Title:      extracted.Title,
		Body:       body,
		Timestamp:  ts,
		SourceName: a.opts.Name,
		Kind:       KindArticle,
		URL:        loc,
	})
}
