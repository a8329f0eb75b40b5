package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/state"
	"github.com/five82/ordersync/internal/storefront"
)

type fakeAPI struct {
	mu      sync.Mutex
	status  map[string]string
	fetches map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{status: make(map[string]string), fetches: make(map[string]int)}
}

func (f *fakeAPI) set(orderID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[orderID] = status
}

func (f *fakeAPI) count(orderID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[orderID]
}

func (f *fakeAPI) FetchOrderStatus(_ context.Context, orderID string) (*storefront.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[orderID]++
	status := f.status[orderID]
	if status == "" {
		status = "PENDING"
	}
	return &storefront.StatusSnapshot{
		OrderID:      orderID,
		Status:       status,
		LastUpdated:  storefront.NewTimestamp(time.Now()),
		IsConsistent: true,
	}, nil
}

func (f *fakeAPI) ResolveConflict(_ context.Context, orderID string, req storefront.ConflictRequest) (*storefront.ConflictResolution, error) {
	return &storefront.ConflictResolution{
		OrderID:        orderID,
		ResolvedStatus: "DELIVERED",
		ClientStatus:   req.ClientStatus,
		WasConflict:    req.ClientStatus != "DELIVERED",
		Timestamp:      storefront.NewTimestamp(time.Now()),
	}, nil
}

func newTestRegistry(t *testing.T, api ordersync.Syncer, board *state.Board, bus *ordersync.Bus) *Registry {
	t.Helper()
	reg := NewRegistry(api, RegistryOptions{
		Board:    board,
		Bus:      bus,
		Interval: time.Hour,
	})
	t.Cleanup(reg.Close)
	return reg
}

func TestInitOrderSyncRendersIntoBoard(t *testing.T) {
	api := newFakeAPI()
	api.set("A1", "CONFIRMED")
	board := &state.Board{}
	reg := newTestRegistry(t, api, board, nil)

	_, err := reg.InitOrderSync("  A1 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, reg.OrderIDs())

	require.Eventually(t, func() bool {
		view, ok := board.Snapshot(time.Now()).Order("A1")
		return ok && view.HasStatus && view.DataStatus == "CONFIRMED"
	}, time.Second, 5*time.Millisecond)
}

func TestInitOrderSyncRejectsBlankID(t *testing.T) {
	reg := newTestRegistry(t, newFakeAPI(), nil, nil)
	_, err := reg.InitOrderSync("   ")
	require.Error(t, err)
	assert.Empty(t, reg.OrderIDs())
}

func TestInitOrderSyncReplacesSession(t *testing.T) {
	api := newFakeAPI()
	reg := newTestRegistry(t, api, &state.Board{}, nil)

	first, err := reg.InitOrderSync("A1")
	require.NoError(t, err)
	second, err := reg.InitOrderSync("A1")
	require.NoError(t, err)

	assert.Equal(t, ordersync.Closed, first.State())
	assert.Equal(t, ordersync.Polling, second.State())
	assert.Equal(t, []string{"A1"}, reg.OrderIDs())

	current, ok := reg.Session("A1")
	require.True(t, ok)
	assert.Same(t, second, current)
}

func TestStopOrderSync(t *testing.T) {
	board := &state.Board{}
	reg := newTestRegistry(t, newFakeAPI(), board, nil)

	sess, err := reg.InitOrderSync("A1")
	require.NoError(t, err)

	assert.True(t, reg.StopOrderSync("A1"))
	assert.False(t, reg.StopOrderSync("A1"))
	assert.Equal(t, ordersync.Closed, sess.State())
	assert.Empty(t, reg.OrderIDs())
	_, tracked := board.Snapshot(time.Now()).Order("A1")
	assert.False(t, tracked)
}

// gatedAPI blocks every fetch after the first until release is closed.
type gatedAPI struct {
	*fakeAPI
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedAPI) FetchOrderStatus(ctx context.Context, orderID string) (*storefront.StatusSnapshot, error) {
	if g.count(orderID) > 0 {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.fakeAPI.FetchOrderStatus(ctx, orderID)
}

func TestStopOrderSyncDuringForceSync(t *testing.T) {
	api := &gatedAPI{fakeAPI: newFakeAPI(), entered: make(chan struct{}), release: make(chan struct{})}
	board := &state.Board{}
	reg := newTestRegistry(t, api, board, nil)
	_, err := reg.InitOrderSync("A1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return api.count("A1") == 1 }, time.Second, 5*time.Millisecond)

	result := make(chan error, 1)
	go func() { result <- reg.ForceSync(context.Background(), "A1") }()
	<-api.entered

	require.True(t, reg.StopOrderSync("A1"))
	close(api.release)

	require.ErrorIs(t, <-result, ordersync.ErrSessionClosed)
	_, tracked := board.Snapshot(time.Now()).Order("A1")
	assert.False(t, tracked, "a late response must not bring the row back")
}

func TestPauseAndResumeAll(t *testing.T) {
	reg := newTestRegistry(t, newFakeAPI(), nil, nil)
	a, err := reg.InitOrderSync("A1")
	require.NoError(t, err)
	b, err := reg.InitOrderSync("B2")
	require.NoError(t, err)

	reg.PauseAll()
	assert.Equal(t, ordersync.Paused, a.State())
	assert.Equal(t, ordersync.Paused, b.State())

	require.NoError(t, reg.ResumeAll())
	assert.Equal(t, ordersync.Polling, a.State())
	assert.Equal(t, ordersync.Polling, b.State())
	assert.Equal(t, time.Hour, a.Interval())
}

func TestForceSyncRoutesToSession(t *testing.T) {
	api := newFakeAPI()
	reg := newTestRegistry(t, api, nil, nil)
	_, err := reg.InitOrderSync("A1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return api.count("A1") >= 1 }, time.Second, 5*time.Millisecond)

	before := api.count("A1")
	require.NoError(t, reg.ForceSync(context.Background(), "A1"))
	assert.Equal(t, before+1, api.count("A1"))

	err = reg.ForceSync(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestResolveConflictRoutesToSession(t *testing.T) {
	board := &state.Board{}
	reg := newTestRegistry(t, newFakeAPI(), board, nil)
	_, err := reg.InitOrderSync("A1")
	require.NoError(t, err)

	res, err := reg.ResolveConflict(context.Background(), "A1", "SHIPPING", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", res.ResolvedStatus)
	assert.True(t, res.WasConflict)

	_, err = reg.ResolveConflict(context.Background(), "nope", "SHIPPING", time.Now())
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestStatusChangesReachBoardHistory(t *testing.T) {
	api := newFakeAPI()
	board := &state.Board{}
	bus := ordersync.NewBus()
	defer bus.Subscribe(board.RecordChange)()
	reg := newTestRegistry(t, api, board, bus)

	_, err := reg.InitOrderSync("A1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		view, ok := board.Snapshot(time.Now()).Order("A1")
		return ok && view.HasStatus
	}, time.Second, 5*time.Millisecond)

	api.set("A1", "CONFIRMED")
	require.NoError(t, reg.ForceSync(context.Background(), "A1"))

	history := board.Snapshot(time.Now()).History
	require.Len(t, history, 1)
	assert.Equal(t, "PENDING", history[0].OldStatus)
	assert.Equal(t, "CONFIRMED", history[0].NewStatus)
	assert.True(t, history[0].ValidTransition)
}

func TestClosedRegistryRejectsOrders(t *testing.T) {
	reg := NewRegistry(newFakeAPI(), RegistryOptions{Interval: time.Hour})
	sess, err := reg.InitOrderSync("A1")
	require.NoError(t, err)

	reg.Close()
	assert.Equal(t, ordersync.Closed, sess.State())
	assert.Empty(t, reg.OrderIDs())

	_, err = reg.InitOrderSync("B2")
	assert.ErrorIs(t, err, ordersync.ErrSessionClosed)
}
