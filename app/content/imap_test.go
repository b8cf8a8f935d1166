package content

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentServer accepts connections and never writes a byte.
func silentServer(t *testing.T) IMAPConfig {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
			select {
			case <-done:
				return
			default:
			}
		}
	}()
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	return IMAPConfig{Host: host, Port: p, Username: "u", Password: "p"}
}

func TestIMAPDialer_ContextDeadlineStopsHungServer(t *testing.T) {
	cfg := silentServer(t)
	cfg.Timeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	session, err := IMAPDialer(cfg)(ctx)

	require.Error(t, err)
	assert.Nil(t, session)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIMAPDialer_TimeoutStopsHungServer(t *testing.T) {
	cfg := silentServer(t)
	cfg.Timeout = 200 * time.Millisecond

	start := time.Now()
	session, err := IMAPDialer(cfg)(context.Background())

	require.Error(t, err)
	assert.Nil(t, session)
	assert.Less(t, time.Since(start), 5*time.Second)
}
