package content

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	// Timeout bounds every network round trip when the context carries no
	// earlier deadline.
	Timeout time.Duration
}

const defaultIMAPTimeout = 30 * time.Second

// IMAPDialer opens a TLS session, logs in and selects the mailbox read-only.
// Cancelling ctx closes the connection.
func IMAPDialer(cfg IMAPConfig) MailDialer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultIMAPTimeout
	}

	return func(ctx context.Context) (MailSession, error) {
		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

		dialer := &net.Dialer{Timeout: timeout}
		raw, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}

		conn := tls.Client(raw, &tls.Config{ServerName: cfg.Host})
		session := &imapSession{conn: conn, timeout: timeout}
		stop := session.watch(ctx)
		defer stop()

		if err := conn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed TLS handshake with %s: %w", addr, err)
		}

		c := imapclient.New(conn, nil)
		session.client = c

		if err := c.Login(cfg.Username, cfg.Password).Wait(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to login: %w", err)
		}

		mailbox := cfg.Mailbox
		if mailbox == "" {
			mailbox = "INBOX"
		}
		if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
			_ = c.Logout().Wait()
			c.Close()
			return nil, fmt.Errorf("failed to select %s: %w", mailbox, err)
		}

		slog.Debug("Mailbox opened", "addr", addr, "mailbox", mailbox)
		return session, nil
	}
}

type imapSession struct {
	client  *imapclient.Client
	conn    net.Conn
	timeout time.Duration
}

// watch sets the connection deadline for one operation and closes the
// connection if ctx ends first. The returned func releases the watcher.
func (s *imapSession) watch(ctx context.Context) func() {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	return func() { stop() }
}

func (s *imapSession) Search(ctx context.Context, addresses []string, since time.Time) ([]uint32, error) {
	defer s.watch(ctx)()
	criteria := searchCriteria(addresses, since)

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	all := data.AllUIDs()
	uids := make([]uint32, 0, len(all))
	for _, uid := range all {
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}

// searchCriteria builds OR (TO a SINCE d) (FROM a SINCE d) for every address,
// chained with further ORs.
func searchCriteria(addresses []string, since time.Time) *imap.SearchCriteria {
	var combined *imap.SearchCriteria

	for _, addr := range addresses {
		to := imap.SearchCriteria{
			Since:  since,
			Header: []imap.SearchCriteriaHeaderField{{Key: "To", Value: addr}},
		}
		from := imap.SearchCriteria{
			Since:  since,
			Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: addr}},
		}
		either := imap.SearchCriteria{Or: [][2]imap.SearchCriteria{{to, from}}}

		if combined == nil {
			combined = &either
			continue
		}
		combined = &imap.SearchCriteria{Or: [][2]imap.SearchCriteria{{*combined, either}}}
	}

	if combined == nil {
		combined = &imap.SearchCriteria{Since: since}
	}
	return combined
}

func (s *imapSession) Fetch(ctx context.Context, uids []uint32) ([]MailMessage, error) {
	defer s.watch(ctx)()
	set := make([]imap.UID, 0, len(uids))
	for _, uid := range uids {
		set = append(set, imap.UID(uid))
	}

	section := &imap.FetchItemBodySection{Peek: true}
	options := &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{section},
	}

	buffers, err := s.client.Fetch(imap.UIDSetNum(set...), options).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	messages := make([]MailMessage, 0, len(buffers))
	for _, buf := range buffers {
		messages = append(messages, MailMessage{
			UID:          uint32(buf.UID),
			InternalDate: buf.InternalDate,
			Raw:          buf.FindBodySection(section),
		})
	}
	return messages, nil
}

func (s *imapSession) Close() error {
	_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
	if err := s.client.Logout().Wait(); err != nil {
		s.client.Close()
		return fmt.Errorf("logout failed: %w", err)
	}
	return s.client.Close()
}
