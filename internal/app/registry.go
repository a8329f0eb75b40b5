package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/state"
)

// ErrUnknownOrder is returned for an order the registry is not watching.
var ErrUnknownOrder = errors.New("order not watched")

// RegistryOptions configure the sessions a Registry creates.
type RegistryOptions struct {
	Board      *state.Board // also the sessions' renderer; nil renders nowhere
	Bus        *ordersync.Bus
	Logger     *zap.Logger
	Interval   time.Duration
	MaxBackoff time.Duration
	Jitter     float64
}

// Registry owns one sync session per watched order. It replaces the page
// level singleton: re-initializing an order swaps its session.
type Registry struct {
	api  ordersync.Syncer
	opts RegistryOptions
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*ordersync.Session
	order    []string
	closed   bool
}

// NewRegistry builds an empty registry polling through api.
func NewRegistry(api ordersync.Syncer, opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = ordersync.DefaultInterval
	}
	return &Registry{
		api:      api,
		opts:     opts,
		log:      logger,
		sessions: make(map[string]*ordersync.Session),
	}
}

// InitOrderSync starts watching orderID. An existing session for the order
// is closed first, so there is never more than one poll loop per order.
func (r *Registry) InitOrderSync(orderID string) (*ordersync.Session, error) {
	orderID = strings.TrimSpace(orderID)

	var renderer ordersync.Renderer = ordersync.NopRenderer{}
	if r.opts.Board != nil {
		renderer = r.opts.Board
	}
	sess, err := ordersync.New(orderID, r.api, ordersync.Options{
		Renderer:   renderer,
		Bus:        r.opts.Bus,
		Logger:     r.log,
		MaxBackoff: r.opts.MaxBackoff,
		Jitter:     r.opts.Jitter,
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		sess.Close()
		return nil, ordersync.ErrSessionClosed
	}

	if old, ok := r.sessions[orderID]; ok {
		old.Close()
		r.log.Info("replacing order sync session", zap.String("order_id", orderID))
	} else {
		r.order = append(r.order, orderID)
	}
	r.sessions[orderID] = sess
	if r.opts.Board != nil {
		r.opts.Board.Track(orderID)
	}

	if err := sess.Start(r.opts.Interval); err != nil {
		return nil, fmt.Errorf("start order %s: %w", orderID, err)
	}
	r.log.Info("watching order", zap.String("order_id", orderID), zap.Duration("interval", r.opts.Interval))
	return sess, nil
}

// Session returns the live session for orderID.
func (r *Registry) Session(orderID string) (*ordersync.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[orderID]
	return sess, ok
}

// OrderIDs returns the watched orders in the order they were added.
func (r *Registry) OrderIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// StopOrderSync closes the session for orderID and stops tracking it.
// It reports whether the order was watched.
func (r *Registry) StopOrderSync(orderID string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[orderID]
	if ok {
		delete(r.sessions, orderID)
		r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == orderID })
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	sess.Close()
	if r.opts.Board != nil {
		r.opts.Board.Forget(orderID)
	}
	r.log.Info("stopped watching order", zap.String("order_id", orderID))
	return true
}

// PauseAll pauses every polling session.
func (r *Registry) PauseAll() {
	for _, sess := range r.snapshot() {
		sess.Pause()
	}
}

// ResumeAll resumes every paused session with its last interval.
func (r *Registry) ResumeAll() error {
	var errs []error
	for _, sess := range r.snapshot() {
		if err := sess.Resume(); err != nil {
			errs = append(errs, fmt.Errorf("resume order %s: %w", sess.OrderID(), err))
		}
	}
	return errors.Join(errs...)
}

// ForceSync polls orderID right away.
func (r *Registry) ForceSync(ctx context.Context, orderID string) error {
	sess, ok := r.Session(orderID)
	if !ok {
		return fmt.Errorf("force sync %s: %w", orderID, ErrUnknownOrder)
	}
	return sess.ForceSync(ctx)
}

// ResolveConflict asks the server to settle orderID against the client's
// view and adopts the server's answer.
func (r *Registry) ResolveConflict(ctx context.Context, orderID, clientStatus string, clientTimestamp time.Time) (*ordersync.Resolution, error) {
	sess, ok := r.Session(orderID)
	if !ok {
		return nil, fmt.Errorf("resolve conflict %s: %w", orderID, ErrUnknownOrder)
	}
	return sess.ResolveConflict(ctx, clientStatus, clientTimestamp)
}

// Close closes every session. The registry accepts no new orders afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*ordersync.Session, 0, len(r.sessions))
	for _, id := range r.order {
		sessions = append(sessions, r.sessions[id])
	}
	r.sessions = make(map[string]*ordersync.Session)
	r.order = nil
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (r *Registry) snapshot() []*ordersync.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ordersync.Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}
