package ordersync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/five82/ordersync/internal/orderstatus"
	"github.com/five82/ordersync/internal/storefront"
)

var (
	// ErrSessionClosed is returned by operations on a closed session and
	// for responses that arrive after Close.
	ErrSessionClosed = errors.New("sync session closed")
	// ErrStaleResponse marks a poll response discarded because a newer
	// request was issued after it.
	ErrStaleResponse = errors.New("response superseded by a newer request")
	// ErrNoResolution wraps every ResolveConflict failure.
	ErrNoResolution = errors.New("conflict not resolved")
)

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Polling
	Paused
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Paused:
		return "paused"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Syncer is what a Session needs from the storefront API.
type Syncer interface {
	FetchOrderStatus(ctx context.Context, orderID string) (*storefront.StatusSnapshot, error)
	ResolveConflict(ctx context.Context, orderID string, req storefront.ConflictRequest) (*storefront.ConflictResolution, error)
}

// Resolution is the adopted result of a conflict-resolution request.
type Resolution struct {
	OrderID        string    `json:"orderId"`
	Decision       Decision  `json:"decision"`
	ClientStatus   string    `json:"clientStatus"`
	ResolvedStatus string    `json:"resolvedStatus"`
	DisplayName    string    `json:"displayName"`
	WasConflict    bool      `json:"wasConflict"`
	Timestamp      time.Time `json:"timestamp"`
}

// Options configure a Session. Zero values are usable.
type Options struct {
	Renderer   Renderer
	Bus        *Bus
	Logger     *zap.Logger
	MaxBackoff time.Duration // zero uses DefaultMaxBackoff
	Jitter     float64       // fraction of the wait; zero disables jitter

	now  func() time.Time
	rand func() float64
}

// Session keeps one order's view in step with the storefront. It owns at most
// one poll loop at a time.
type Session struct {
	orderID    string
	api        Syncer
	renderer   Renderer
	bus        *Bus
	log        *zap.Logger
	maxBackoff time.Duration
	jitter     float64
	now        func() time.Time
	rand       func() float64

	base       context.Context
	baseCancel context.CancelFunc

	// seq is the id of the most recently issued request.
	seq atomic.Uint64

	// lifecycle serializes Start/Stop/Pause/Resume/Close.
	lifecycle sync.Mutex
	// applyMu serializes writers of the last-known state so a poll and a
	// forced sync cannot interleave their view updates.
	applyMu sync.Mutex

	mu            sync.Mutex
	lastStatus    string
	lastTimestamp time.Time
	hasStatus     bool
	failures      int
	interval      time.Duration
	state         State
	cancel        context.CancelFunc
	done          chan struct{}
}

// New creates an idle session for orderID.
func New(orderID string, api Syncer, opts Options) (*Session, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, fmt.Errorf("order id required")
	}
	if api == nil {
		return nil, fmt.Errorf("sync api required")
	}
	s := &Session{
		orderID:    id,
		api:        api,
		renderer:   opts.Renderer,
		bus:        opts.Bus,
		log:        opts.Logger,
		maxBackoff: opts.MaxBackoff,
		jitter:     opts.Jitter,
		now:        opts.now,
		rand:       opts.rand,
		interval:   DefaultInterval,
	}
	if s.renderer == nil {
		s.renderer = NopRenderer{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("order_id", id))
	if s.maxBackoff <= 0 {
		s.maxBackoff = DefaultMaxBackoff
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.base, s.baseCancel = context.WithCancel(context.Background())
	return s, nil
}

// OrderID returns the order this session tracks.
func (s *Session) OrderID() string { return s.orderID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interval returns the poll period of the current or most recent loop.
func (s *Session) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// ConsecutiveFailures returns how many polls in a row have failed.
func (s *Session) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// LastKnown returns the most recently applied status. ok is false before the
// first successful poll or resolution.
func (s *Session) LastKnown() (status string, at time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus, s.lastTimestamp, s.hasStatus
}

// Start begins polling every interval, with one poll issued right away. A
// running loop is replaced, never duplicated. A non-positive interval means
// DefaultInterval.
func (s *Session) Start(interval time.Duration) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.startLocked(interval)
}

// Stop cancels the poll loop, including its in-flight request, and waits for
// it to exit. Stopping an idle session does nothing.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.haltLocked()
	s.mu.Lock()
	if s.state == Polling || s.state == Paused {
		s.state = Idle
	}
	s.mu.Unlock()
}

// Pause stops polling while remembering that the session should resume.
// Used when the dashboard loses visibility.
func (s *Session) Pause() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	polling := s.state == Polling
	s.mu.Unlock()
	if !polling {
		return
	}
	s.haltLocked()
	s.mu.Lock()
	s.state = Paused
	s.mu.Unlock()
	s.log.Debug("sync paused")
}

// Resume restarts a paused session with the interval it was using.
func (s *Session) Resume() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	paused := s.state == Paused
	interval := s.interval
	s.mu.Unlock()
	if !paused {
		return nil
	}
	s.log.Debug("sync resumed", zap.Duration("interval", interval))
	return s.startLocked(interval)
}

// Close stops the session for good. Responses still in flight are
// discarded when they arrive.
func (s *Session) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.haltLocked()
	// Waits out an apply already past its liveness check.
	s.applyMu.Lock()
	s.mu.Lock()
	already := s.state == Closed
	s.state = Closed
	s.mu.Unlock()
	s.applyMu.Unlock()
	s.baseCancel()
	if !already {
		s.log.Debug("sync session closed")
	}
}

// ForceSync polls immediately, outside the regular schedule.
func (s *Session) ForceSync(ctx context.Context) error {
	return s.SyncOrderStatus(ctx)
}

// SyncOrderStatus issues one status request and applies the response unless
// the session closed or a newer request superseded it in the meantime.
// Failures leave the last-known state untouched.
func (s *Session) SyncOrderStatus(ctx context.Context) error {
	if s.State() == Closed {
		return ErrSessionClosed
	}
	id := s.seq.Add(1)
	log := s.log.With(zap.Uint64("seq", id))

	snap, err := s.api.FetchOrderStatus(ctx, s.orderID)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("status poll cancelled", zap.Error(err))
			return ctx.Err()
		}
		s.mu.Lock()
		s.failures++
		failures := s.failures
		s.mu.Unlock()
		log.Error("status poll failed", zap.Error(err), zap.Int("consecutive_failures", failures))
		s.renderer.PollFailed(s.orderID, err)
		return fmt.Errorf("sync order %s: %w", s.orderID, err)
	}
	if snap == nil {
		return fmt.Errorf("sync order %s: empty response", s.orderID)
	}
	if snap.OrderID == "" {
		snap.OrderID = s.orderID
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if s.State() == Closed {
		log.Debug("discarding response for closed session")
		return ErrSessionClosed
	}
	if latest := s.seq.Load(); latest != id {
		log.Debug("discarding stale response", zap.Uint64("latest", latest))
		return ErrStaleResponse
	}
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
	s.handleLocked(*snap)
	return nil
}

// HandleStatusUpdate applies snap as the new ground truth: it publishes a
// status change when the status moved, raises a warning when the server
// flags the order as inconsistent, and refreshes the view.
func (s *Session) HandleStatusUpdate(snap storefront.StatusSnapshot) {
	if snap.OrderID == "" {
		snap.OrderID = s.orderID
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.handleLocked(snap)
}

func (s *Session) handleLocked(snap storefront.StatusSnapshot) {
	s.mu.Lock()
	prev, had := s.lastStatus, s.hasStatus
	s.mu.Unlock()

	if had && prev != "" && prev != snap.Status {
		ev := StatusChanged{
			OrderID:         s.orderID,
			OldStatus:       prev,
			NewStatus:       snap.Status,
			Timestamp:       snap.LastUpdated.Time,
			ValidTransition: orderstatus.Status(prev).CanTransitionTo(orderstatus.Status(snap.Status)),
		}
		s.log.Info("order status changed",
			zap.String("old_status", prev),
			zap.String("new_status", snap.Status),
			zap.Bool("valid_transition", ev.ValidTransition),
		)
		s.bus.Dispatch(ev)
	}

	if !snap.IsConsistent {
		s.log.Warn("data inconsistency detected",
			zap.String("status", snap.Status),
			zap.Time("last_updated", snap.LastUpdated.Time),
		)
		s.renderer.ShowInconsistencyWarning(snap)
	}

	s.mu.Lock()
	s.lastStatus = snap.Status
	s.lastTimestamp = snap.LastUpdated.Time
	s.hasStatus = true
	s.mu.Unlock()

	if snap.DisplayName == "" {
		snap.DisplayName = orderstatus.DisplayName(snap.Status)
	}
	s.renderer.Render(snap)
}

// ResolveConflict submits the client's belief to the server and adopts the
// server's resolved status. The returned Decision compares the client's
// belief with the server's reply, so an accepted server side always names
// the adopted status. Every failure wraps ErrNoResolution and leaves the
// session untouched.
func (s *Session) ResolveConflict(ctx context.Context, clientStatus string, clientTimestamp time.Time) (*Resolution, error) {
	if s.State() == Closed {
		return nil, fmt.Errorf("%w: %w", ErrNoResolution, ErrSessionClosed)
	}
	res, err := s.api.ResolveConflict(ctx, s.orderID, storefront.ConflictRequest{
		ClientStatus:    clientStatus,
		ClientTimestamp: storefront.NewTimestamp(clientTimestamp),
	})
	if err != nil {
		s.log.Error("conflict resolution failed", zap.String("client_status", clientStatus), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNoResolution, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty response", ErrNoResolution)
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if s.State() == Closed {
		return nil, fmt.Errorf("%w: %w", ErrNoResolution, ErrSessionClosed)
	}

	resolvedAt := res.Timestamp.Time
	if resolvedAt.IsZero() {
		resolvedAt = s.now()
	}

	decision := ResolutionStrategy(clientStatus, res.ResolvedStatus, clientTimestamp, resolvedAt)
	s.mu.Lock()
	s.lastStatus = res.ResolvedStatus
	s.lastTimestamp = resolvedAt
	s.hasStatus = true
	s.mu.Unlock()

	// Polls issued before the resolution must not overwrite it.
	s.seq.Add(1)

	displayName := res.DisplayName
	if displayName == "" {
		displayName = orderstatus.DisplayName(res.ResolvedStatus)
	}
	out := Resolution{
		OrderID:        s.orderID,
		Decision:       decision,
		ClientStatus:   clientStatus,
		ResolvedStatus: res.ResolvedStatus,
		DisplayName:    displayName,
		WasConflict:    res.WasConflict,
		Timestamp:      resolvedAt,
	}
	if res.WasConflict {
		s.log.Info("conflict resolved",
			zap.String("client_status", clientStatus),
			zap.String("resolved_status", res.ResolvedStatus),
			zap.String("action", string(decision.Action)),
		)
		s.renderer.ShowConflictNotice(out)
	}
	return &out, nil
}

func (s *Session) startLocked(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if s.State() == Closed {
		return ErrSessionClosed
	}
	s.haltLocked()

	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.interval = interval
	s.state = Polling
	s.mu.Unlock()

	s.log.Debug("sync started", zap.Duration("interval", interval))
	go s.loop(ctx, interval, done)
	return nil
}

// haltLocked cancels the running loop, if any, and waits for it to return.
// Caller holds s.lifecycle.
func (s *Session) haltLocked() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		_ = s.SyncOrderStatus(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(s.nextWait(interval))
	}
}

func (s *Session) nextWait(interval time.Duration) time.Duration {
	s.mu.Lock()
	failures := s.failures
	s.mu.Unlock()
	return applyJitter(calculateBackoff(failures, interval, s.maxBackoff), s.jitter, s.rand)
}
