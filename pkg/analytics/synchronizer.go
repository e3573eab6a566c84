package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/stream"
)

// Status reports the health of the live feed.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusLive         Status = "live"
	StatusReconnecting Status = "reconnecting"
)

// Fetcher loads the initial snapshot of a form.
type Fetcher interface {
	GetAnalytics(ctx context.Context, formID string) (model.AnalyticsSnapshot, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, formID string) (model.AnalyticsSnapshot, error)

func (f FetchFunc) GetAnalytics(ctx context.Context, formID string) (model.AnalyticsSnapshot, error) {
	return f(ctx, formID)
}

// TargetFunc maps a form id to the feed target handed to the dialer.
type TargetFunc func(formID string) string

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNow overrides the wall clock used to stamp merged snapshots.
func WithNow(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStreamOptions forwards options to the underlying stream client.
func WithStreamOptions(options ...stream.Option) Option {
	return func(s *Synchronizer) {
		s.streamOptions = append(s.streamOptions, options...)
	}
}

// Synchronizer maintains the live snapshot of one form at a time.
type Synchronizer struct {
	fetcher       Fetcher
	target        TargetFunc
	client        *stream.Client[model.Delta]
	logger        *slog.Logger
	now           func() time.Time
	streamOptions []stream.Option

	// gate serialises Activate, bootstrap application and Close.
	gate       sync.Mutex
	generation uint64
	formID     string
	cancel     context.CancelFunc
	closed     bool

	// mu guards the state touched by stream callbacks.
	mu       sync.Mutex
	snapshot *model.AnalyticsSnapshot
	status   Status
	changes  chan struct{}
}

// NewSynchronizer wires a synchronizer. dialer opens the delta feed at the
// target returned by target for the active form.
func NewSynchronizer(fetcher Fetcher, dialer stream.Dialer, target TargetFunc, options ...Option) *Synchronizer {
	s := &Synchronizer{
		fetcher: fetcher,
		target:  target,
		logger:  slog.Default(),
		now:     time.Now,
		status:  StatusIdle,
		changes: make(chan struct{}, 1),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	streamOptions := append([]stream.Option{stream.WithLogger(s.logger)}, s.streamOptions...)
	s.client = stream.New(dialer, stream.Handlers[model.Delta]{
		OnOpen:    s.handleOpen,
		OnMessage: s.handleDelta,
		OnError:   s.handleError,
	}, streamOptions...)
	return s
}

// Activate switches the synchronizer to formID. Any previous subscription is
// torn down, the snapshot is cleared and the bootstrap fetch starts in the
// background. The feed is opened only once the bootstrap succeeds; a failed
// bootstrap leaves the synchronizer idle without a snapshot. An empty formID
// just deactivates.
func (s *Synchronizer) Activate(ctx context.Context, formID string) {
	s.gate.Lock()
	defer s.gate.Unlock()
	if s.closed {
		return
	}

	s.generation++
	generation := s.generation
	s.teardownLocked()
	s.formID = formID
	s.reset()
	if formID == "" {
		return
	}

	bootstrapCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.bootstrap(bootstrapCtx, generation, formID)
}

// Close stops the feed and any in-flight bootstrap. The synchronizer cannot
// be reactivated.
func (s *Synchronizer) Close() error {
	s.gate.Lock()
	defer s.gate.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.generation++
	s.teardownLocked()
	s.formID = ""
	err := s.client.Close()

	s.mu.Lock()
	s.status = StatusIdle
	s.mu.Unlock()
	s.notify()
	return err
}

// Snapshot returns a copy of the current snapshot and whether one exists.
func (s *Synchronizer) Snapshot() (model.AnalyticsSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return model.AnalyticsSnapshot{}, false
	}
	return s.snapshot.Clone(), true
}

// Status reports the feed status.
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// FormID reports the active form.
func (s *Synchronizer) FormID() string {
	s.gate.Lock()
	defer s.gate.Unlock()
	return s.formID
}

// Changes signals after the snapshot or status changes. Signals coalesce:
// a reader that falls behind sees one pending signal, not one per change.
func (s *Synchronizer) Changes() <-chan struct{} {
	return s.changes
}

func (s *Synchronizer) bootstrap(ctx context.Context, generation uint64, formID string) {
	snapshot, err := s.fetcher.GetAnalytics(ctx, formID)
	if err != nil {
		s.logger.Debug("analytics bootstrap failed", "form_id", formID, "error", err)
		return
	}

	s.gate.Lock()
	defer s.gate.Unlock()
	if s.closed || generation != s.generation {
		s.logger.Debug("analytics bootstrap superseded", "form_id", formID)
		return
	}

	s.mu.Lock()
	snapshot = snapshot.Clone()
	// One entry per (fieldId, kind), as every later merge assumes.
	if snapshot.Fields != nil {
		snapshot.Fields = MergeFields(nil, snapshot.Fields)
	}
	s.snapshot = &snapshot
	s.mu.Unlock()
	s.notify()

	if err := s.client.SetTarget(s.target(formID)); err != nil {
		s.logger.Debug("analytics feed not started", "form_id", formID, "error", err)
	}
}

func (s *Synchronizer) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	// Waits for the feed loop to exit, so no callback for the previous form
	// runs after this point.
	_ = s.client.SetTarget("")
}

func (s *Synchronizer) reset() {
	s.mu.Lock()
	s.snapshot = nil
	s.status = StatusIdle
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) handleOpen() {
	s.setStatus(StatusLive)
}

func (s *Synchronizer) handleError(err error) {
	s.logger.Debug("analytics feed error", "error", err)
	s.setStatus(StatusReconnecting)
}

func (s *Synchronizer) handleDelta(delta model.Delta) {
	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return
	}
	next := Merge(*s.snapshot, delta, s.now())
	s.snapshot = &next
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) setStatus(status Status) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Synchronizer) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
