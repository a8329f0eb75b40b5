package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/prefs"
	"github.com/five82/ordersync/internal/state"
	"github.com/five82/ordersync/internal/storefront"
)

type fakeController struct {
	mu       sync.Mutex
	synced   []string
	resolved []string
	paused   int
	resumed  int
	syncErr  error
}

func (f *fakeController) ForceSync(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, orderID)
	return f.syncErr
}

func (f *fakeController) ResolveConflict(_ context.Context, orderID, clientStatus string, clientTimestamp time.Time) (*ordersync.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, orderID+"="+clientStatus)
	return &ordersync.Resolution{
		OrderID:        orderID,
		Decision:       ordersync.ResolutionStrategy(clientStatus, "SHIPPING", clientTimestamp, clientTimestamp.Add(time.Minute)),
		ClientStatus:   clientStatus,
		ResolvedStatus: "SHIPPING",
		DisplayName:    "Đang giao hàng",
		WasConflict:    true,
	}, nil
}

func (f *fakeController) PauseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
}

func (f *fakeController) ResumeAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return nil
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, board *state.Board, ctl Controller) Model {
	t.Helper()
	m := New(Options{
		Board:     board,
		Control:   ctl,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Prefs:     prefs.Prefs{Theme: "Slate"},
	})
	m.now = func() time.Time { return testNow }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(Model)
}

func boardWithOrders(ids ...string) *state.Board {
	board := &state.Board{Now: func() time.Time { return testNow }}
	for _, id := range ids {
		board.Render(storefront.StatusSnapshot{
			OrderID:      id,
			Status:       "CONFIRMED",
			DisplayName:  "Đã xác nhận",
			LastUpdated:  storefront.NewTimestamp(testNow.Add(-time.Hour)),
			IsConsistent: true,
		})
	}
	return board
}

func refresh(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(snapshotMsg(m.board.Snapshot(testNow)))
	return updated.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewUsesPrefsTheme(t *testing.T) {
	m := newTestModel(t, nil, nil)
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	if m.pollTick != time.Second {
		t.Fatalf("pollTick = %v, want 1s", m.pollTick)
	}
}

func TestViewBeforeResize(t *testing.T) {
	m := New(Options{})
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View() = %q, want Loading...", got)
	}
}

func TestViewListsOrders(t *testing.T) {
	m := refresh(t, newTestModel(t, boardWithOrders("A1", "B2"), nil))
	view := m.View()
	for _, want := range []string{"#A1", "#B2", "Orders (2)", "ordersync"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestSelectionMovesAndClamps(t *testing.T) {
	board := boardWithOrders("A1", "B2")
	m := refresh(t, newTestModel(t, board, nil))

	updated, _ := m.Update(runes("j"))
	m = updated.(Model)
	if m.selectedRow != 1 {
		t.Fatalf("selectedRow = %d, want 1", m.selectedRow)
	}
	updated, _ = m.Update(runes("j"))
	m = updated.(Model)
	if m.selectedRow != 1 {
		t.Fatalf("selectedRow past end = %d, want 1", m.selectedRow)
	}

	board.Forget("B2")
	m = refresh(t, m)
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow after forget = %d, want 0", m.selectedRow)
	}
}

func TestForceSyncKey(t *testing.T) {
	ctl := &fakeController{}
	m := refresh(t, newTestModel(t, boardWithOrders("A1"), ctl))

	updated, cmd := m.Update(runes("r"))
	m = updated.(Model)
	if cmd == nil {
		t.Fatalf("expected sync command")
	}
	if _, busy := m.inFlight["A1"]; !busy {
		t.Fatalf("expected A1 marked in flight")
	}

	// A second press while the first is running is ignored
	if _, again := m.Update(runes("r")); again != nil {
		t.Fatalf("expected duplicate sync to be ignored")
	}

	msg := cmd()
	updated, _ = m.Update(msg)
	m = updated.(Model)
	if len(ctl.synced) != 1 || ctl.synced[0] != "A1" {
		t.Fatalf("synced = %v, want [A1]", ctl.synced)
	}
	if _, busy := m.inFlight["A1"]; busy {
		t.Fatalf("expected in-flight mark cleared")
	}
	if m.flash != "#A1 synced" || m.flashErr {
		t.Fatalf("flash = %q (err=%v)", m.flash, m.flashErr)
	}
}

func TestForceSyncFailureFlashesError(t *testing.T) {
	ctl := &fakeController{syncErr: errors.New("connection refused")}
	m := refresh(t, newTestModel(t, boardWithOrders("A1"), ctl))

	_, cmd := m.Update(runes("r"))
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if !m.flashErr || !strings.Contains(m.flash, "connection refused") {
		t.Fatalf("flash = %q (err=%v)", m.flash, m.flashErr)
	}
}

func TestStaleSyncIsNotAnError(t *testing.T) {
	ctl := &fakeController{syncErr: ordersync.ErrStaleResponse}
	m := refresh(t, newTestModel(t, boardWithOrders("A1"), ctl))

	_, cmd := m.Update(runes("r"))
	updated, _ := m.Update(cmd())
	if updated.(Model).flashErr {
		t.Fatalf("stale response should not be reported as a failure")
	}
}

func TestResolveKeySubmitsShownStatus(t *testing.T) {
	ctl := &fakeController{}
	m := refresh(t, newTestModel(t, boardWithOrders("A1"), ctl))

	_, cmd := m.Update(runes("c"))
	if cmd == nil {
		t.Fatalf("expected resolve command")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if len(ctl.resolved) != 1 || ctl.resolved[0] != "A1=CONFIRMED" {
		t.Fatalf("resolved = %v", ctl.resolved)
	}
	if !strings.Contains(m.flash, "resolved to SHIPPING") {
		t.Fatalf("flash = %q", m.flash)
	}
}

func TestResolveNeedsStatus(t *testing.T) {
	board := &state.Board{}
	board.Track("A1")
	m := refresh(t, newTestModel(t, board, &fakeController{}))

	if _, cmd := m.Update(runes("c")); cmd != nil {
		t.Fatalf("expected no resolve before first sync")
	}
}

func TestBlurPausesAndFocusResumes(t *testing.T) {
	ctl := &fakeController{}
	m := newTestModel(t, nil, ctl)

	updated, _ := m.Update(tea.BlurMsg{})
	m = updated.(Model)
	if !m.paused || ctl.paused != 1 {
		t.Fatalf("paused=%v calls=%d, want paused once", m.paused, ctl.paused)
	}

	updated, _ = m.Update(tea.FocusMsg{})
	m = updated.(Model)
	if m.paused || ctl.resumed != 1 {
		t.Fatalf("paused=%v resumed=%d, want resumed once", m.paused, ctl.resumed)
	}
}

func TestFocusDoesNotResumeManualPause(t *testing.T) {
	ctl := &fakeController{}
	m := newTestModel(t, nil, ctl)

	updated, _ := m.Update(runes("p"))
	m = updated.(Model)
	if !m.paused {
		t.Fatalf("expected manual pause")
	}

	updated, _ = m.Update(tea.FocusMsg{})
	m = updated.(Model)
	if !m.paused || ctl.resumed != 0 {
		t.Fatalf("focus resumed a manual pause")
	}

	updated, _ = m.Update(runes("p"))
	m = updated.(Model)
	if m.paused || ctl.resumed != 1 {
		t.Fatalf("paused=%v resumed=%d after second p", m.paused, ctl.resumed)
	}
}

func TestDismissRemovesSelectedOrderBanner(t *testing.T) {
	board := boardWithOrders("A1")
	board.ShowInconsistencyWarning(storefront.StatusSnapshot{OrderID: "A1", Status: "CONFIRMED"})
	m := refresh(t, newTestModel(t, board, nil))
	if len(m.snapshot.Banners) != 1 {
		t.Fatalf("banners = %d, want 1", len(m.snapshot.Banners))
	}
	if !strings.Contains(m.View(), "WARN") {
		t.Fatalf("expected warning banner in view")
	}

	updated, cmd := m.Update(runes("x"))
	m = updated.(Model)
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if len(m.snapshot.Banners) != 0 {
		t.Fatalf("banners after dismiss = %d, want 0", len(m.snapshot.Banners))
	}
}

func TestViewSwitching(t *testing.T) {
	m := newTestModel(t, nil, nil)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.currentView != ViewHistory {
		t.Fatalf("view after tab = %v, want history", m.currentView)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = updated.(Model)
	if m.currentView != ViewOrders {
		t.Fatalf("view after shift+tab = %v, want orders", m.currentView)
	}
	updated, _ = m.Update(runes("l"))
	m = updated.(Model)
	if m.currentView != ViewLogs {
		t.Fatalf("view after l = %v, want logs", m.currentView)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if updated.(Model).currentView != ViewOrders {
		t.Fatalf("esc should return to orders")
	}
}

func TestHistoryViewShowsChanges(t *testing.T) {
	board := boardWithOrders("A1")
	board.RecordChange(ordersync.StatusChanged{
		OrderID:   "A1",
		OldStatus: "CONFIRMED",
		NewStatus: "DELIVERED",
		Timestamp: testNow,
	})
	m := refresh(t, newTestModel(t, board, nil))
	updated, _ := m.Update(runes("y"))
	view := updated.(Model).View()

	for _, want := range []string{"History (1)", "DELIVERED", "unexpected"} {
		if !strings.Contains(view, want) {
			t.Fatalf("history view missing %q", want)
		}
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t, nil, nil)
	updated, _ := m.Update(runes("?"))
	m = updated.(Model)
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("expected help overlay")
	}
	updated, _ = m.Update(runes("j"))
	if updated.(Model).showHelp {
		t.Fatalf("any key should close help")
	}
}

func TestCycleThemeSavesPrefs(t *testing.T) {
	m := newTestModel(t, nil, nil)
	updated, _ := m.Update(runes("T"))
	m = updated.(Model)
	if m.theme.Name != "Nightfox" {
		t.Fatalf("theme = %q, want Nightfox", m.theme.Name)
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if saved.Theme != "Nightfox" {
		t.Fatalf("saved theme = %q, want Nightfox", saved.Theme)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, nil, nil)
	_, cmd := m.Update(runes("e"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
