package content

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

// MailLookback bounds the server-side search. Each candidate is then checked
// against the exact window.
const MailLookback = 14 * 24 * time.Hour

// MailMessage is one message as returned by the mailbox.
type MailMessage struct {
	UID          uint32
	InternalDate time.Time
	Raw          []byte
}

// MailSession is an open, read-only mailbox connection.
type MailSession interface {
	// Search returns the UIDs of messages sent to or from any of addresses
	// since the given day.
	Search(ctx context.Context, addresses []string, since time.Time) ([]uint32, error)
	Fetch(ctx context.Context, uids []uint32) ([]MailMessage, error)
	Close() error
}

type MailDialer func(ctx context.Context) (MailSession, error)

type MailboxOptions struct {
	Name      string
	Addresses []string
	// SubjectPrefix is removed from subjects, e.g. a list tag like "FAST ♞ ".
	SubjectPrefix string
	Cleanup       Cleanup
	Location      *time.Location
}

type MailboxAdapter struct {
	opts MailboxOptions
	dial MailDialer
}

func NewMailboxAdapter(dial MailDialer, opts MailboxOptions) *MailboxAdapter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &MailboxAdapter{opts: opts, dial: dial}
}

func (a *MailboxAdapter) Name() string {
	return a.opts.Name
}

func (a *MailboxAdapter) Fetch(ctx context.Context, window timeframe.Window) []Item {
	if len(a.opts.Addresses) == 0 {
		slog.Warn("Mailbox source has no addresses", "source", a.opts.Name)
		return []Item{}
	}

	session, err := a.dial(ctx)
	if err != nil {
		slog.Error("Failed to open mailbox", "source", a.opts.Name, "error", err)
		return []Item{}
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("Failed to close mailbox", "source", a.opts.Name, "error", err)
		}
	}()

	uids, err := session.Search(ctx, a.opts.Addresses, window.End.Add(-MailLookback))
	if err != nil {
		slog.Error("Mailbox search failed", "source", a.opts.Name, "error", err)
		return []Item{}
	}
	if len(uids) == 0 {
		return collect(a.opts.Name, nil)
	}

	messages, err := session.Fetch(ctx, uids)
	if err != nil {
		slog.Error("Mailbox fetch failed", "source", a.opts.Name, "error", err)
		return []Item{}
	}

	results := make([]entryResult, 0, len(messages))
	seen := make(map[string]bool, len(messages))
	for _, msg := range messages {
		r := a.normalize(window, msg)
		if r.err == nil {
			if seen[r.item.ID] {
				continue
			}
			seen[r.item.ID] = true
		}
		results = append(results, r)
	}

	return collect(a.opts.Name, results)
}

func (a *MailboxAdapter) normalize(window timeframe.Window, msg MailMessage) entryResult {
	parsed, err := parseMail(msg.Raw)
	if err != nil {
		return failed(fmt.Errorf("message %d: %w", msg.UID, err))
	}

	ts := msg.InternalDate
	if ts.IsZero() {
		ts = parsed.date
	}
	if ts.IsZero() {
		return failed(fmt.Errorf("message %d: %w", msg.UID, ErrNoTimestamp))
	}
	ts = ts.In(a.opts.Location)

	if !window.Contains(ts) {
		return failed(ErrOutsideWindow)
	}

	subject := parsed.subject
	if a.opts.SubjectPrefix != "" {
		subject = strings.ReplaceAll(subject, a.opts.SubjectPrefix, "")
	}
	subject = strings.TrimSpace(subject)

	body := parsed.text
	if body == "" {
		body = StripHTML(parsed.html)
	}
	body = a.opts.Cleanup.Apply(CleanText(body))
	if body == "" {
		return failed(fmt.Errorf("message %d: %w", msg.UID, ErrEmptyBody))
	}

	return ok(Item{
		ID:         cmp.Or(parsed.messageID, syntheticKey(parsed.sender, subject, ts)),
		Title:      subject,
		Body:       body,
		Timestamp:  ts,
		SourceName: a.opts.Name,
		Kind:       KindEmail,
		Sender:     parsed.sender,
		Subject:    subject,
	})
}

// syntheticKey derives a stable identifier for messages lacking a Message-ID.
func syntheticKey(sender, subject string, ts time.Time) string {
	name := fmt.Sprintf("%s\x00%s\x00%s", sender, subject, ts.UTC().Format(time.RFC3339))
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

type parsedMail struct {
	messageID string
	sender    string
	subject   string
	date      time.Time
	text      string
	html      string
}

func parseMail(raw []byte) (parsedMail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return parsedMail{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	var pm parsedMail
	pm.messageID, _ = mr.Header.MessageID()
	pm.subject, _ = mr.Header.Subject()
	pm.date, _ = mr.Header.Date()

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		pm.sender = cmp.Or(from[0].Name, from[0].Address)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return pm, fmt.Errorf("failed to read part: %w", err)
		}

		h, isInline := part.Header.(*mail.InlineHeader)
		if !isInline {
			continue
		}
		contentType, _, _ := h.ContentType()

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return pm, fmt.Errorf("failed to read %s part: %w", contentType, err)
		}

		switch contentType {
		case "text/plain":
			if pm.text == "" {
				pm.text = string(data)
			}
		case "text/html":
			if pm.html == "" {
				pm.html = string(data)
			}
		}
	}

	return pm, nil
}
