package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

const (
	DefaultSearchEndpoint = "https://api.tavily.com/search"
	DefaultSearchMaxChars = 5000
	searchMaxResults      = 5
)

type SearchOptions struct {
	Name     string
	Endpoint string
	APIKey   string
	Queries  []string
	// MaxChars caps each result's raw text before it reaches the budget.
	MaxChars int
	Location *time.Location
	// Now stamps results the API returns without a date.
	Now func() time.Time
}

// SearchAdapter runs a topic's canned news queries against the Tavily API.
type SearchAdapter struct {
	opts    SearchOptions
	fetcher *Fetcher
}

type searchRequest struct {
	Query             string `json:"query"`
	Topic             string `json:"topic"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
	Days              int    `json:"days"`
	MaxResults        int    `json:"max_results"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	RawContent    string `json:"raw_content"`
	PublishedDate string `json:"published_date"`
}

func NewSearchAdapter(fetcher *Fetcher, opts SearchOptions) *SearchAdapter {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultSearchEndpoint
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultSearchMaxChars
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SearchAdapter{opts: opts, fetcher: fetcher}
}

func (a *SearchAdapter) Name() string {
	return a.opts.Name
}

func (a *SearchAdapter) Fetch(ctx context.Context, window timeframe.Window) []Item {
	if a.opts.APIKey == "" {
		slog.Warn("Search API key not set, skipping", "source", a.opts.Name)
		return []Item{}
	}
	if len(a.opts.Queries) == 0 {
		slog.Warn("No search queries configured", "source", a.opts.Name)
		return []Item{}
	}

	days := window.Days()
	seen := make(map[string]bool)
	var results []entryResult

	for _, query := range a.opts.Queries {
		resp, err := a.search(ctx, query, days)
		if err != nil {
			slog.Warn("Search query failed", "source", a.opts.Name, "query", query, "error", err)
			continue
		}

		for _, r := range resp.Results {
			link := strings.TrimSpace(r.URL)
			if link == "" || seen[link] {
				continue
			}
			seen[link] = true
			results = append(results, a.normalize(window, r))
		}
	}

	return collect(a.opts.Name, results)
}

func (a *SearchAdapter) search(ctx context.Context, query string, days int) (searchResponse, error) {
	req := searchRequest{
		Query:             query,
		Topic:             "news",
		SearchDepth:       "advanced",
		IncludeRawContent: true,
		Days:              days,
		MaxResults:        searchMaxResults,
	}
	headers := map[string]string{"Authorization": "Bearer " + a.opts.APIKey}

	data, err := a.fetcher.PostJSON(ctx, a.opts.Endpoint, headers, req)
	if err != nil {
		return searchResponse{}, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return searchResponse{}, fmt.Errorf("failed to decode search response: %w", err)
	}
	return resp, nil
}

func (a *SearchAdapter) normalize(window timeframe.Window, r searchResult) entryResult {
	link := strings.TrimSpace(r.URL)

	var ts time.Time
	if r.PublishedDate != "" {
		parsed, err := ParseTime(r.PublishedDate, a.opts.Location)
		if err == nil {
			if !window.Contains(parsed) {
				return failed(ErrOutsideWindow)
			}
			ts = parsed
		}
	}
	if ts.IsZero() {
		ts = a.opts.Now().In(a.opts.Location)
	}

	raw := r.RawContent
	if strings.TrimSpace(raw) == "" {
		raw = r.Content
	}
	body := Truncate(CleanText(raw), a.opts.MaxChars)
	if body == "" {
		return failed(fmt.Errorf("result %s: %w", link, ErrEmptyBody))
	}

	return ok(Item{
		ID:         link,
		Title:      CleanText(r.Title),
		Body:       body,
		Timestamp:  ts,
		SourceName: Domain(link),
		Kind:       KindArticle,
		URL:        link,
	})
}

// Domain returns the host of rawURL without a leading "www.".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
