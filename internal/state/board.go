package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/storefront"
)

const (
	// ConsistentClass and InconsistentClass tag an order view with the
	// server's consistency verdict.
	ConsistentClass   = "consistent"
	InconsistentClass = "inconsistent"

	// ConflictNoticeTTL is how long a conflict notice stays up.
	ConflictNoticeTTL = 5 * time.Second

	// DefaultHistoryLimit bounds the status-change history.
	DefaultHistoryLimit = 50

	// TimestampLayout renders LastUpdated in local time.
	TimestampLayout = "2006-01-02 15:04:05"

	inconsistencyMessage = "Cảnh báo: Dữ liệu đơn hàng có thể không đồng bộ."
	conflictMessage      = "Thông báo: Trạng thái đơn hàng đã được đồng bộ: %s"
)

// OrderView is everything shown for one order. The field names mirror the
// attributes a page would set on the order's status elements.
type OrderView struct {
	OrderID          string
	StatusText       string // display name
	DataStatus       string // raw status code
	TimestampText    string
	LastUpdated      time.Time
	ConsistencyClass string
	HasStatus        bool

	LastPolled          time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline reports whether the storefront has been unreachable for
// multiple polls.
func (v OrderView) IsOffline() bool {
	return v.ConsecutiveFailures >= 2
}

// Consistent reports whether the last applied snapshot was consistent.
func (v OrderView) Consistent() bool {
	return v.ConsistencyClass == ConsistentClass
}

// BannerKind distinguishes the two kinds of banner.
type BannerKind int

const (
	// InconsistencyWarning stays until dismissed and offers a resync.
	InconsistencyWarning BannerKind = iota
	// ConflictNotice expires on its own.
	ConflictNotice
)

func (k BannerKind) String() string {
	if k == ConflictNotice {
		return "conflict"
	}
	return "inconsistency"
}

// Banner is a dismissible message attached to an order.
type Banner struct {
	ID        string
	Kind      BannerKind
	OrderID   string
	Message   string
	Status    string
	CreatedAt time.Time
	ExpiresAt time.Time // zero means until dismissed
}

// Expired reports whether the banner should no longer be shown at now.
func (b Banner) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && !now.Before(b.ExpiresAt)
}

// Snapshot is a point-in-time copy of the board.
type Snapshot struct {
	Orders  []OrderView
	Banners []Banner
	History []ordersync.StatusChanged // oldest first
}

// Order returns the view for orderID.
func (s Snapshot) Order(orderID string) (OrderView, bool) {
	for _, v := range s.Orders {
		if v.OrderID == orderID {
			return v, true
		}
	}
	return OrderView{}, false
}

// Board is the thread-safe view model every session renders into. The zero
// value is ready to use.
type Board struct {
	// HistoryLimit bounds History; zero means DefaultHistoryLimit.
	HistoryLimit int
	// Now defaults to time.Now.
	Now func() time.Time

	mu       sync.RWMutex
	order    []string
	views    map[string]*OrderView
	banners  []Banner
	history  []ordersync.StatusChanged
	noticeID int
}

var _ ordersync.Renderer = (*Board)(nil)

// Track adds an order with no status yet so it shows up before the first
// poll completes. Tracking a known order does nothing.
func (b *Board) Track(orderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewLocked(orderID)
}

// Forget drops an order and its banners.
func (b *Board) Forget(orderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.views[orderID]; !ok {
		return
	}
	delete(b.views, orderID)
	b.order = slices.DeleteFunc(b.order, func(id string) bool { return id == orderID })
	b.banners = slices.DeleteFunc(b.banners, func(bn Banner) bool { return bn.OrderID == orderID })
}

// Render applies a snapshot to the order's view. A consistent snapshot also
// retires the order's inconsistency warning.
func (b *Board) Render(snap storefront.StatusSnapshot) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	v := b.viewLocked(snap.OrderID)
	v.StatusText = snap.DisplayName
	v.DataStatus = snap.Status
	v.LastUpdated = snap.LastUpdated.Time
	v.TimestampText = formatTimestamp(snap.LastUpdated.Time)
	v.HasStatus = true
	v.LastPolled = now
	v.LastError = nil
	v.ConsecutiveFailures = 0
	if snap.IsConsistent {
		v.ConsistencyClass = ConsistentClass
		b.banners = slices.DeleteFunc(b.banners, func(bn Banner) bool {
			return bn.Kind == InconsistencyWarning && bn.OrderID == snap.OrderID
		})
	} else {
		v.ConsistencyClass = InconsistentClass
	}
}

// ShowInconsistencyWarning raises the order's warning, replacing any that is
// already up.
func (b *Board) ShowInconsistencyWarning(snap storefront.StatusSnapshot) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.viewLocked(snap.OrderID)
	warning := Banner{
		ID:        "inconsistent:" + snap.OrderID,
		Kind:      InconsistencyWarning,
		OrderID:   snap.OrderID,
		Message:   inconsistencyMessage,
		Status:    snap.Status,
		CreatedAt: now,
	}
	for i, bn := range b.banners {
		if bn.ID == warning.ID {
			b.banners[i] = warning
			return
		}
	}
	b.banners = append(b.banners, warning)
}

// ShowConflictNotice raises a notice that expires after ConflictNoticeTTL.
func (b *Board) ShowConflictNotice(res ordersync.Resolution) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.viewLocked(res.OrderID)
	b.noticeID++
	b.banners = append(b.banners, Banner{
		ID:        fmt.Sprintf("conflict:%s:%d", res.OrderID, b.noticeID),
		Kind:      ConflictNotice,
		OrderID:   res.OrderID,
		Message:   fmt.Sprintf(conflictMessage, res.DisplayName),
		Status:    res.ResolvedStatus,
		CreatedAt: now,
		ExpiresAt: now.Add(ConflictNoticeTTL),
	})
}

// PollFailed records err against the order and keeps its last status.
func (b *Board) PollFailed(orderID string, err error) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	v := b.viewLocked(orderID)
	v.LastPolled = now
	v.LastError = err
	v.ConsecutiveFailures++
}

// RecordChange appends a status change to the history. It has the shape of
// a Bus handler.
func (b *Board) RecordChange(ev ordersync.StatusChanged) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := b.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	b.history = append(b.history, ev)
	if over := len(b.history) - limit; over > 0 {
		b.history = slices.Delete(b.history, 0, over)
	}
}

// Dismiss removes a banner and reports whether it was present.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.banners)
	b.banners = slices.DeleteFunc(b.banners, func(bn Banner) bool { return bn.ID == id })
	return len(b.banners) != n
}

// Snapshot returns a copy of the board as of now. Expired notices are pruned.
func (b *Board) Snapshot(now time.Time) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.banners = slices.DeleteFunc(b.banners, func(bn Banner) bool { return bn.Expired(now) })

	snap := Snapshot{
		Orders:  make([]OrderView, 0, len(b.order)),
		Banners: slices.Clone(b.banners),
		History: slices.Clone(b.history),
	}
	for _, id := range b.order {
		v := *b.views[id]
		if v.LastError != nil {
			v.LastError = fmt.Errorf("%w", v.LastError)
		}
		snap.Orders = append(snap.Orders, v)
	}
	return snap
}

func (b *Board) viewLocked(orderID string) *OrderView {
	if b.views == nil {
		b.views = make(map[string]*OrderView)
	}
	v, ok := b.views[orderID]
	if !ok {
		v = &OrderView{OrderID: orderID}
		b.views[orderID] = v
		b.order = append(b.order, orderID)
	}
	return v
}

func (b *Board) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimestampLayout)
}
