package stream

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"

	sse "github.com/tmaxmax/go-sse"
)

// maxSSEEventSize bounds a single event on the wire.
const maxSSEEventSize = 1 << 20

// SSEDialer subscribes to an HTTP text/event-stream endpoint. Every event's
// data lines are joined with newlines and returned as one payload; comments,
// heartbeats and events without data are skipped. Named events are delivered
// like unnamed ones.
type SSEDialer struct {
	Client *http.Client
	Header http.Header
}

// NewSSEDialer returns a dialer using client, or http.DefaultClient when nil.
func NewSSEDialer(client *http.Client, header http.Header) *SSEDialer {
	return &SSEDialer{Client: client, Header: header}
}

func (d *SSEDialer) Dial(ctx context.Context, target string) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: build sse request: %w", err)
	}
	for key, values := range d.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream: sse connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream: sse connect: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream: sse connect: unexpected content type %q", ct)
	}
	return newSSEConn(resp.Body), nil
}

type sseConn struct {
	body io.ReadCloser
	once sync.Once

	// mu serializes the pull iterator, which must not be driven from two
	// goroutines at once.
	mu   sync.Mutex
	next func() (sse.Event, error, bool)
	stop func()
}

func newSSEConn(body io.ReadCloser) *sseConn {
	events := iter.Seq2[sse.Event, error](sse.Read(body, &sse.ReadConfig{MaxEventSize: maxSSEEventSize}))
	next, stop := iter.Pull2(events)
	return &sseConn{body: body, next: next, stop: stop}
}

// Read returns the data of the next event that carries any. Reconnecting is
// left to the Client, so end of stream surfaces as io.EOF.
func (c *sseConn) Read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err, ok := c.next()
		if !ok {
			c.stop()
			return nil, io.EOF
		}
		if err != nil {
			c.stop()
			return nil, fmt.Errorf("stream: sse read: %w", err)
		}
		if ev.Data == "" {
			continue
		}
		return []byte(ev.Data), nil
	}
}

// Close closes the body first so a blocked Read returns, then releases the
// parser.
func (c *sseConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.body.Close()
		c.mu.Lock()
		c.stop()
		c.mu.Unlock()
	})
	return err
}
