package content

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

type Kind string

const (
	KindArticle Kind = "article"
	KindEmail   Kind = "email"
)

var (
	ErrNoTimestamp   = errors.New("no usable timestamp")
	ErrOutsideWindow = errors.New("outside collection window")
	ErrEmptyBody     = errors.New("empty body")
)

// Item is the normalized record every adapter produces. Articles carry URL,
// emails carry Sender and Subject.
type Item struct {
	ID         string
	Title      string
	Body       string
	Timestamp  time.Time
	SourceName string
	Kind       Kind

	URL     string
	Sender  string
	Subject string
}

// Adapter retrieves the items a single source published inside a window.
// Failures never escape Fetch: a broken source yields an empty slice.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, window timeframe.Window) []Item
}

// entryResult is the outcome of normalizing one raw entry.
type entryResult struct {
	item Item
	err  error
}

func ok(item Item) entryResult {
	return entryResult{item: item}
}

func failed(err error) entryResult {
	return entryResult{err: err}
}
