package content

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

// testWindow spans 2024-10-14 10:00 UTC to 2024-10-15 10:00 UTC.
func testWindow() timeframe.Window {
	start := time.Date(2024, 10, 14, 10, 0, 0, 0, time.UTC)
	return timeframe.Window{Start: start, End: start.Add(24 * time.Hour)}
}

func rfc822(t time.Time) string {
	return t.UTC().Format(time.RFC1123)
}

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(body, "<?xml") {
				w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			} else {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
			}
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(srv *httptest.Server) *Fetcher {
	return NewFetcher(srv.Client(), "briefing-test", 5*time.Second, 0)
}
