package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchStub struct {
	mu       sync.Mutex
	requests []searchRequest
	auth     []string
	byQuery  map[string][]searchResult
}

func (s *searchStub) handler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	results := s.byQuery[req.Query]
	s.mu.Unlock()

	if results == nil && req.Query == "fail" {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(searchResponse{Results: results})
}

func TestSearchAdapter_DedupWindowAndStamping(t *testing.T) {
	w := testWindow()
	now := w.End.Add(90 * time.Minute)

	stub := &searchStub{byQuery: map[string][]searchResult{
		"cultivated meat": {
			{URL: "https://www.reuters.com/a", Title: "Dated", RawContent: strings.Repeat("x", 50), PublishedDate: w.Start.Add(time.Hour).Format(time.RFC3339)},
			{URL: "https://news.example.org/b", Title: "Undated", Content: "snippet only"},
			{URL: "https://old.example.org/c", Title: "Old", RawContent: "old", PublishedDate: w.Start.Add(-time.Hour).Format(time.RFC3339)},
		},
		"plant-based": {
			{URL: "https://www.reuters.com/a", Title: "Dated duplicate", RawContent: "dup"},
		},
	}}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)

	adapter := NewSearchAdapter(newTestFetcher(srv), SearchOptions{
		Name:     "Web Search",
		Endpoint: srv.URL,
		APIKey:   "tvly-test",
		Queries:  []string{"cultivated meat", "fail", "plant-based"},
		MaxChars: 10,
		Now:      func() time.Time { return now },
	})
	items := adapter.Fetch(context.Background(), w)

	require.Len(t, items, 2)

	dated := items[0]
	assert.Equal(t, "Dated", dated.Title)
	assert.Equal(t, "reuters.com", dated.SourceName)
	assert.Equal(t, strings.Repeat("x", 10), dated.Body)
	assert.True(t, dated.Timestamp.Equal(w.Start.Add(time.Hour)))

	undated := items[1]
	assert.Equal(t, "Undated", undated.Title)
	assert.Equal(t, "snippet on", undated.Body)
	assert.Equal(t, "news.example.org", undated.SourceName)
	assert.True(t, undated.Timestamp.Equal(now))

	require.Len(t, stub.requests, 3)
	req := stub.requests[0]
	assert.Equal(t, "news", req.Topic)
	assert.Equal(t, "advanced", req.SearchDepth)
	assert.True(t, req.IncludeRawContent)
	assert.Equal(t, 1, req.Days)
	assert.Equal(t, 5, req.MaxResults)
	assert.Equal(t, "Bearer tvly-test", stub.auth[0])
}

func TestSearchAdapter_MissingAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	adapter := NewSearchAdapter(newTestFetcher(srv), SearchOptions{
		Name:     "Web Search",
		Endpoint: srv.URL,
		Queries:  []string{"anything"},
	})
	items := adapter.Fetch(context.Background(), testWindow())

	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.False(t, called)
}

func TestSearchAdapter_WeekendWindowWidensDays(t *testing.T) {
	stub := &searchStub{byQuery: map[string][]searchResult{}}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)

	w := testWindow()
	w.Start = w.End.Add(-72 * time.Hour)

	adapter := NewSearchAdapter(newTestFetcher(srv), SearchOptions{
		Name: "Web Search", Endpoint: srv.URL, APIKey: "k", Queries: []string{"q"},
	})
	adapter.Fetch(context.Background(), w)

	require.Len(t, stub.requests, 1)
	assert.Equal(t, 3, stub.requests[0].Days)
}
