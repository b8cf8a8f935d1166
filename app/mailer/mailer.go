// Package mailer composes the briefing email and delivers it over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// Inline is an image embedded in the HTML body and referenced as cid:<CID>.
type Inline struct {
	CID         string
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	Date   time.Time
	HTML   string
	Inline []Inline
}

// SendFunc delivers a composed message; smtp.SendMail satisfies it.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Recipients are blind-copied when SendToEveryone is set.
	Recipients     []string
	SendToEveryone bool
	Location       *time.Location
}

type Mailer struct {
	cfg  Config
	send SendFunc
}

func New(cfg Config) *Mailer {
	return NewWithSender(cfg, smtp.SendMail)
}

func NewWithSender(cfg Config, send SendFunc) *Mailer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, send: send}
}

// Subject is the briefing subject line for date in the configured zone.
func (m *Mailer) Subject(date time.Time) string {
	return "Daily Briefing - " + date.In(m.cfg.Location).Format("Monday, January 2, 2006")
}

// Envelope returns the SMTP recipients: the account itself, plus the
// configured list when sending to everyone.
func (m *Mailer) Envelope() []string {
	to := []string{m.cfg.Username}
	if !m.cfg.SendToEveryone {
		return to
	}
	seen := map[string]bool{strings.ToLower(m.cfg.Username): true}
	for _, r := range m.cfg.Recipients {
		r = strings.TrimSpace(r)
		if r == "" || seen[strings.ToLower(r)] {
			continue
		}
		seen[strings.ToLower(r)] = true
		to = append(to, r)
	}
	return to
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Username == "" {
		return fmt.Errorf("mail username is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := m.Compose(msg)
	if err != nil {
		return err
	}

	recipients := m.Envelope()
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	start := time.Now()
	if err := m.send(addr, auth, m.cfg.Username, recipients, data); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Email sent", "recipients", len(recipients), "bytes", len(data), "inline", len(msg.Inline), "duration", time.Since(start))
	return nil
}

// Compose builds the multipart/related message. Blind copies never appear
// in the headers.
func (m *Mailer) Compose(msg Message) ([]byte, error) {
	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}

	var h mail.Header
	account := []*mail.Address{{Address: m.cfg.Username}}
	h.SetAddressList("From", account)
	h.SetAddressList("To", account)
	h.SetSubject(m.Subject(date))
	h.SetDate(date)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.Set("MIME-Version", "1.0")
	h.SetContentType("multipart/related", map[string]string{"type": "text/html"})

	var buf bytes.Buffer
	w, err := message.CreateWriter(&buf, h.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	var htmlHeader message.Header
	htmlHeader.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	htmlHeader.Set("Content-Transfer-Encoding", "quoted-printable")
	if err := writePart(w, htmlHeader, []byte(msg.HTML)); err != nil {
		return nil, fmt.Errorf("failed to write html part: %w", err)
	}

	for _, img := range msg.Inline {
		var ih message.Header
		ct := img.ContentType
		if ct == "" {
			ct = "image/png"
		}
		ih.SetContentType(ct, map[string]string{"name": img.Filename})
		ih.Set("Content-Transfer-Encoding", "base64")
		ih.Set("Content-ID", "<"+img.CID+">")
		ih.SetContentDisposition("inline", map[string]string{"filename": img.Filename})
		if err := writePart(w, ih, img.Data); err != nil {
			return nil, fmt.Errorf("failed to write inline image %s: %w", img.CID, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(w *message.Writer, h message.Header, data []byte) error {
	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(pw, bytes.NewReader(data)); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}

// Charts loads every PNG in dir as an inline image whose content id is the
// file name without extension. A missing directory yields no charts.
func Charts(dir string) ([]Inline, error) {
	if dir == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	sort.Strings(paths)

	charts := make([]Inline, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Chart skipped", "path", path, "error", err)
			continue
		}
		name := filepath.Base(path)
		charts = append(charts, Inline{
			CID:         strings.TrimSuffix(name, filepath.Ext(name)),
			Filename:    name,
			ContentType: "image/png",
			Data:        data,
		})
	}
	return charts, nil
}
