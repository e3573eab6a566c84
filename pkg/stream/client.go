package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// State describes where a Client is in its connection lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateWaiting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateWaiting:
		return "waiting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one open subscription. Read blocks until the next payload arrives
// and returns an error once the connection is no longer usable. Close must
// unblock a pending Read.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a subscription to target.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, target string) (Conn, error)

func (f DialFunc) Dial(ctx context.Context, target string) (Conn, error) {
	return f(ctx, target)
}

// Handlers receive connection events. Nil members are skipped. All handlers
// run on the client's loop goroutine, one at a time, and must not call Close
// or SetTarget synchronously.
type Handlers[T any] struct {
	OnOpen    func()
	OnMessage func(T)
	OnError   func(error)
}

// Policy computes retry delays.
type Policy struct {
	Base time.Duration
	Cap  time.Duration
}

// DefaultPolicy matches the analytics feed: 4s steps capped at 15s.
var DefaultPolicy = Policy{Base: 4 * time.Second, Cap: 15 * time.Second}

// Delay returns min(Base*attempt, Cap). Attempts below one are treated as one.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base * time.Duration(attempt)
	if p.Cap > 0 && (delay > p.Cap || delay < 0) {
		return p.Cap
	}
	return delay
}

// Clock schedules retries. Tests swap it for a manual clock.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ErrClosed is reported by SetTarget after Close.
var ErrClosed = errors.New("stream: client closed")

type config struct {
	policy Policy
	clock  Clock
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*config)

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *config) {
		if p.Base > 0 {
			c.policy = p
		}
	}
}

// WithClock overrides the clock used to wait between retries.
func WithClock(clock Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client subscribes to one target at a time and decodes payloads into T.
type Client[T any] struct {
	dialer Dialer
	cfg    config

	handlers atomic.Pointer[Handlers[T]]
	state    atomic.Int32
	attempt  atomic.Int64

	mu     sync.Mutex
	target string
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// New constructs an idle Client. Call SetTarget to connect.
func New[T any](dialer Dialer, handlers Handlers[T], options ...Option) *Client[T] {
	cfg := config{
		policy: DefaultPolicy,
		clock:  realClock{},
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	c := &Client[T]{dialer: dialer, cfg: cfg}
	c.handlers.Store(&handlers)
	return c
}

// SetHandlers replaces the handlers. Events dispatched after the call see the
// new set; the connection is not restarted.
func (c *Client[T]) SetHandlers(handlers Handlers[T]) {
	c.handlers.Store(&handlers)
}

// SetTarget tears down any connection or pending retry and, when target is
// not empty, starts connecting to it. Setting the current target again
// restarts the subscription.
func (c *Client[T]) SetTarget(target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stopLocked()
	c.target = target
	c.attempt.Store(0)
	if target == "" {
		c.state.Store(int32(StateIdle))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.state.Store(int32(StateConnecting))
	go c.run(ctx, target, done)
	return nil
}

// Target reports the current target.
func (c *Client[T]) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Close stops the client for good. It waits for the loop to exit, so no
// handler runs after Close returns.
func (c *Client[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.stopLocked()
	c.target = ""
	c.state.Store(int32(StateClosed))
	return nil
}

// State reports the current lifecycle state.
func (c *Client[T]) State() State {
	return State(c.state.Load())
}

// Attempt reports the number of consecutive failures since the last open.
func (c *Client[T]) Attempt() int {
	return int(c.attempt.Load())
}

func (c *Client[T]) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

func (c *Client[T]) run(ctx context.Context, target string, done chan struct{}) {
	defer close(done)
	logger := c.cfg.logger.With("target", target)
	attempt := 0

	for {
		c.setState(ctx, StateConnecting)
		err := c.session(ctx, target, &attempt)
		if ctx.Err() != nil {
			return
		}
		c.dispatchError(err)

		attempt++
		c.attempt.Store(int64(attempt))
		delay := c.cfg.policy.Delay(attempt)
		logger.Debug("stream retry scheduled", "attempt", attempt, "delay", delay, "error", err)

		c.setState(ctx, StateWaiting)
		select {
		case <-ctx.Done():
			return
		case <-c.cfg.clock.After(delay):
		}
	}
}

// session dials target and pumps messages until the connection fails.
func (c *Client[T]) session(ctx context.Context, target string, attempt *int) error {
	conn, err := c.dialer.Dial(ctx, target)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		if stop() {
			_ = conn.Close()
		}
	}()

	*attempt = 0
	c.attempt.Store(0)
	c.setState(ctx, StateOpen)
	if h := c.handlers.Load(); h.OnOpen != nil && ctx.Err() == nil {
		h.OnOpen()
	}

	for {
		payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var msg T
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.cfg.logger.Debug("stream payload dropped", "target", target, "error", err)
			continue
		}
		if h := c.handlers.Load(); h.OnMessage != nil {
			h.OnMessage(msg)
		}
	}
}

func (c *Client[T]) dispatchError(err error) {
	if h := c.handlers.Load(); h.OnError != nil {
		h.OnError(err)
	}
}

// setState is a no-op once the loop has been cancelled so the final state is
// owned by SetTarget and Close.
func (c *Client[T]) setState(ctx context.Context, s State) {
	if ctx.Err() != nil {
		return
	}
	c.state.Store(int32(s))
}
