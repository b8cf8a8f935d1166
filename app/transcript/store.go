// Package transcript keeps a per-run record of every prompt, model response
// and rendered newsletter.
package transcript

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

type Kind string

const (
	KindPrompt     Kind = "prompt"
	KindResponse   Kind = "response"
	KindNewsletter Kind = "newsletter"
)

type Entry struct {
	ID        string
	RunID     string
	Topic     string
	Kind      Kind
	Body      string
	CreatedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

type Store struct {
	db      *sql.DB
	version uint

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Open opens (creating if needed) the SQLite file at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	version, err := migrateSchema(db, path)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		version: version,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}, nil
}

// OpenOrNop opens the store, falling back to a recorder that drops entries
// when the store is unavailable. The returned close func is never nil.
func OpenOrNop(path string) (Recorder, func() error) {
	if path == "" {
		return Nop{}, func() error { return nil }
	}
	store, err := Open(path)
	if err != nil {
		slog.Error("Transcript store unavailable, continuing without it", "path", path, "error", err)
		return Nop{}, func() error { return nil }
	}
	return store, store.Close
}

// SchemaVersion is the migration version the store was opened at.
func (s *Store) SchemaVersion() uint {
	return s.version
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if entry.ID == "" {
		entry.ID = ulid.MustNew(ulid.Timestamp(entry.CreatedAt), s.entropy).String()
	}
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, run_id, topic, kind, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.RunID, entry.Topic, string(entry.Kind), entry.Body, entry.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record transcript: %w", err)
	}
	return nil
}

// Run returns the entries of one run in insertion order.
func (s *Store) Run(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, topic, kind, body, created_at
		FROM transcripts
		WHERE run_id = ?
		ORDER BY created_at, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var created int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Topic, &kind, &e.Body, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		e.Kind = Kind(kind)
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}
	return entries, nil
}
