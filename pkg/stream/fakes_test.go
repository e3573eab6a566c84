package stream_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/goliatone/go-formsync/pkg/stream"
)

type manualClock struct {
	mu      sync.Mutex
	delays  []time.Duration
	waiters []chan time.Time
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.delays = append(c.delays, d)
	c.waiters = append(c.waiters, ch)
	return ch
}

func (c *manualClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// Fire releases the most recent pending wait.
func (c *manualClock) Fire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return
	}
	select {
	case c.waiters[len(c.waiters)-1] <- time.Now():
	default:
	}
}

type fakeConn struct {
	frames chan []byte
	fail   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	case err := <-c.fail:
		return nil, err
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

var errRefused = errors.New("connection refused")

// scriptedDialer fails while failures > 0 and then hands out fresh conns.
type scriptedDialer struct {
	mu       sync.Mutex
	failures int
	dials    []string
	conns    []*fakeConn
}

func (d *scriptedDialer) Dial(_ context.Context, target string) (stream.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, target)
	if d.failures > 0 {
		d.failures--
		return nil, errRefused
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *scriptedDialer) SetFailures(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

func (d *scriptedDialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}

func (d *scriptedDialer) Conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *scriptedDialer) ConnCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}
