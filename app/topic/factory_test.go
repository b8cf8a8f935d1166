package topic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/daily-briefing/app/content"
	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

func TestFactory_BuildsEveryKind(t *testing.T) {
	config, err := Parse([]byte(`
title: AI
search_queries: ["ai agents"]
sources:
  - kind: rss
    name: The Rundown
    url: https://rss.example.com/feed.xml
    refetch: true
    latest_only: true
    content_rule: {tag: div, attr: id, value: content-blocks}
  - kind: sitemap
    url: https://www.example.com/sitemap_index.xml
  - kind: page
    name: Semafor
    url: https://www.semafor.com/
    rules:
      - {tag: article}
  - kind: mailbox
    name: List
    addresses: [list@example.org]
  - kind: search
    name: Web
    filters:
      - field: title
        excludes: [podcast]
`))
	require.NoError(t, err)

	dial := func(ctx context.Context) (content.MailSession, error) { return nil, nil }
	f := &Factory{
		Fetcher:  content.NewFetcher(nil, "test", time.Second, 0),
		Mail:     dial,
		Location: time.UTC,
	}

	adapters, err := f.Adapters(config)
	require.NoError(t, err)
	require.Len(t, adapters, 5)

	assert.IsType(t, &content.RSSAdapter{}, adapters[0])
	assert.IsType(t, &content.SitemapAdapter{}, adapters[1])
	assert.Equal(t, "example.com", adapters[1].Name())
	assert.IsType(t, &content.PageAdapter{}, adapters[2])
	assert.IsType(t, &content.MailboxAdapter{}, adapters[3])
	assert.IsType(t, &content.Filtered{}, adapters[4])
	assert.Equal(t, "Web", adapters[4].Name())
}

func TestFactory_MailboxWithoutAccountKeepsOtherSources(t *testing.T) {
	config, err := Parse([]byte(`
title: Mixed
sources:
  - kind: rss
    name: Feed
    url: https://example.com/feed.xml
  - kind: mailbox
    name: List
    addresses: [a@b]
  - kind: page
    name: Page
    url: https://example.com/page
`))
	require.NoError(t, err)

	f := &Factory{Fetcher: content.NewFetcher(nil, "test", time.Second, 0)}
	adapters, err := f.Adapters(config)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source 1 (List)")
	require.Len(t, adapters, 2)
	assert.Equal(t, "Feed", adapters[0].Name())
	assert.Equal(t, "Page", adapters[1].Name())
}

func TestFactory_RSSStripWithoutRefetch(t *testing.T) {
	w := timeframe.Window{
		Start: time.Date(2024, 10, 14, 6, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 10, 15, 6, 0, 0, 0, time.UTC),
	}
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Vegconomist</title>
<item>
  <title>Launch</title>
  <link>https://vegconomist.example/launch</link>
  <description><![CDATA[<p>Real text</p><div class="wp-caption"><p>Photo credit: Brand</p></div>]]></description>
  <pubDate>Mon, 14 Oct 2024 12:00:00 GMT</pubDate>
</item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/rss+xml")
		rw.Write([]byte(feed))
	}))
	defer srv.Close()

	config, err := Parse([]byte(`
title: Alternative Protein
sources:
  - kind: rss
    name: Vegconomist
    url: ` + srv.URL + `/feed/
    strip: ["div.wp-caption"]
`))
	require.NoError(t, err)

	f := &Factory{Fetcher: content.NewFetcher(srv.Client(), "test", time.Second, 0), Location: time.UTC}
	adapters, err := f.Adapters(config)
	require.NoError(t, err)
	require.Len(t, adapters, 1)

	items := adapters[0].Fetch(context.Background(), w)
	require.Len(t, items, 1)
	assert.Equal(t, "Real text", items[0].Body)
}
