package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/ordersync/internal/state"
)

const defaultReportInterval = 5 * time.Second

// reporter stands in for the dashboard when running headless: it logs each
// banner the board raises once, and a periodic summary of failing orders.
type reporter struct {
	board *state.Board
	log   *zap.Logger
	now   func() time.Time

	seen map[string]struct{} // banner ids already logged
}

func newReporter(board *state.Board, logger *zap.Logger) *reporter {
	return &reporter{
		board: board,
		log:   logger,
		now:   time.Now,
		seen:  make(map[string]struct{}),
	}
}

// run reports at a fixed cadence until ctx is cancelled.
func (r *reporter) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultReportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.report()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *reporter) report() {
	snap := r.board.Snapshot(r.now())

	live := make(map[string]struct{}, len(snap.Banners))
	for _, b := range snap.Banners {
		live[b.ID] = struct{}{}
		if _, ok := r.seen[b.ID]; ok {
			continue
		}
		r.seen[b.ID] = struct{}{}
		fields := []zap.Field{
			zap.String("order_id", b.OrderID),
			zap.String("status", b.Status),
			zap.String("banner", b.Kind.String()),
		}
		if b.Kind == state.InconsistencyWarning {
			r.log.Warn(b.Message, fields...)
		} else {
			r.log.Info(b.Message, fields...)
		}
	}
	// Forget banners that are gone so a later warning is reported again
	for id := range r.seen {
		if _, ok := live[id]; !ok {
			delete(r.seen, id)
		}
	}

	failing := 0
	for _, o := range snap.Orders {
		if o.IsOffline() {
			failing++
			r.log.Warn("order sync failing",
				zap.String("order_id", o.OrderID),
				zap.Int("consecutive_failures", o.ConsecutiveFailures),
				zap.Error(o.LastError))
		}
	}
	if failing > 0 {
		r.log.Debug("sync summary", zap.Int("orders", len(snap.Orders)), zap.Int("failing", failing))
	}
}
