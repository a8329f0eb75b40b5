package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/prefs"
	"github.com/five82/ordersync/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewOrders View = iota
	ViewHistory
	ViewLogs
)

// Controller is what the dashboard drives. Implemented by app.Registry.
type Controller interface {
	ForceSync(ctx context.Context, orderID string) error
	ResolveConflict(ctx context.Context, orderID, clientStatus string, clientTimestamp time.Time) (*ordersync.Resolution, error)
	PauseAll()
	ResumeAll() error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Board     *state.Board
	Control   Controller
	APIBase   string
	LogFile   string
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
	Prefs     prefs.Prefs
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	board     *state.Board
	control   Controller
	apiBase   string
	logFile   string
	prefsPath string
	prefs     prefs.Prefs
	pollTick  time.Duration
	now       func() time.Time

	// UI state
	keys        keyMap
	help        help.Model
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	paused      bool // polling suspended by blur or by hand
	blurred     bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	selectedRow int

	historyViewport viewport.Model
	logViewport     viewport.Model
	logLines        []string
	logFollow       bool
	logAllOrders    bool

	// Last action result shown in the footer
	flash    string
	flashErr bool
	inFlight map[string]string // order id -> running action
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = opts.Prefs.Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	board := opts.Board
	if board == nil {
		board = &state.Board{}
	}

	return Model{
		ctx:         ctx,
		board:       board,
		control:     opts.Control,
		apiBase:     opts.APIBase,
		logFile:     opts.LogFile,
		prefsPath:   prefsPath,
		prefs:       opts.Prefs,
		pollTick:    pollTick,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		theme:       GetTheme(themeName),
		currentView: ViewOrders,
		logFollow:   true,
		inFlight:    make(map[string]string),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		fetchSnapshotCmd(m.board, m.now),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.resizeViewports()
		m.updateHistoryViewport()
		m.updateLogViewport()
		return m, nil

	case tea.BlurMsg:
		m.blurred = true
		if !m.paused && m.control != nil {
			m.control.PauseAll()
			m.paused = true
		}
		return m, nil

	case tea.FocusMsg:
		if m.blurred && m.paused {
			m.blurred = false
			return m, m.resume()
		}
		m.blurred = false
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.now()
		m.clampSelection()
		if m.ready {
			m.resizeViewports()
		}
		m.updateHistoryViewport()
		return m, nil

	case logLinesMsg:
		if msg.err == nil {
			m.logLines = msg.lines
			m.updateLogViewport()
		}
		return m, nil

	case actionMsg:
		return m.handleAction(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, m.prefs)
		}
		m.updateHistoryViewport()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.currentView = (m.currentView + 1) % 3
		return m, m.enterView()

	case key.Matches(msg, m.keys.ShiftTab):
		m.currentView = (m.currentView + 2) % 3
		return m, m.enterView()

	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.ViewOrders):
		m.currentView = ViewOrders
		return m, nil

	case key.Matches(msg, m.keys.ViewHistory):
		m.currentView = ViewHistory
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Pause):
		if m.paused {
			return m, m.resume()
		}
		if m.control != nil {
			m.control.PauseAll()
			m.paused = true
			m.setFlash("Polling paused", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.ForceSync):
		return m.startForceSync()

	case key.Matches(msg, m.keys.Resolve):
		return m.startResolve()

	case key.Matches(msg, m.keys.Dismiss):
		m.dismissBanner()
		return m, fetchSnapshotCmd(m.board, m.now)
	}

	switch m.currentView {
	case ViewOrders:
		return m.handleOrdersKey(msg)
	case ViewHistory:
		var cmd tea.Cmd
		m.historyViewport, cmd = m.historyViewport.Update(msg)
		return m, cmd
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m *Model) enterView() tea.Cmd {
	if m.currentView == ViewLogs {
		return m.refreshLogs()
	}
	return nil
}

// handleOrdersKey moves the selection in the orders table.
func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Orders)
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	}
	return m, nil
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{fetchSnapshotCmd(m.board, m.now)}
	if m.currentView == ViewLogs && m.logFollow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) resume() tea.Cmd {
	m.paused = false
	if m.control == nil {
		return nil
	}
	if err := m.control.ResumeAll(); err != nil {
		m.setFlash("Resume failed: "+err.Error(), true)
		return nil
	}
	m.setFlash("Polling resumed", false)
	return nil
}

// selectedOrder returns the highlighted order, if any.
func (m Model) selectedOrder() (state.OrderView, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Orders) {
		return state.OrderView{}, false
	}
	return m.snapshot.Orders[m.selectedRow], true
}

func (m *Model) clampSelection() {
	if n := len(m.snapshot.Orders); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
}

func (m Model) startForceSync() (tea.Model, tea.Cmd) {
	order, ok := m.selectedOrder()
	if !ok || m.control == nil {
		return m, nil
	}
	if _, busy := m.inFlight[order.OrderID]; busy {
		return m, nil
	}
	m.inFlight[order.OrderID] = "sync"
	m.setFlash("Syncing #"+order.OrderID+"...", false)
	return m, forceSyncCmd(m.ctx, m.control, order.OrderID)
}

// startResolve submits the status currently shown for the selected order as
// the client's belief.
func (m Model) startResolve() (tea.Model, tea.Cmd) {
	order, ok := m.selectedOrder()
	if !ok || m.control == nil || !order.HasStatus {
		return m, nil
	}
	if _, busy := m.inFlight[order.OrderID]; busy {
		return m, nil
	}
	m.inFlight[order.OrderID] = "resolve"
	m.setFlash("Resolving #"+order.OrderID+"...", false)
	return m, resolveCmd(m.ctx, m.control, order.OrderID, order.DataStatus, order.LastUpdated)
}

func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	delete(m.inFlight, msg.orderID)

	switch {
	case msg.err == nil && msg.resolution != nil:
		r := msg.resolution
		m.setFlash(fmt.Sprintf("#%s resolved to %s (%s: %s)", msg.orderID, r.ResolvedStatus, r.Decision.Action, r.Decision.Reason), false)
	case msg.err == nil, errors.Is(msg.err, ordersync.ErrStaleResponse):
		m.setFlash("#"+msg.orderID+" synced", false)
	default:
		m.setFlash(fmt.Sprintf("#%s %s failed: %v", msg.orderID, msg.verb, msg.err), true)
	}
	return m, fetchSnapshotCmd(m.board, m.now)
}

// dismissBanner removes the first banner belonging to the selected order,
// or the first banner overall when no order is selected.
func (m *Model) dismissBanner() {
	order, hasOrder := m.selectedOrder()
	for _, b := range m.snapshot.Banners {
		if hasOrder && b.OrderID != order.OrderID {
			continue
		}
		m.board.Dismiss(b.ID)
		return
	}
	if len(m.snapshot.Banners) > 0 {
		m.board.Dismiss(m.snapshot.Banners[0].ID)
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	banners := m.renderBanners()
	if banners != "" {
		b.WriteString(banners)
		b.WriteString("\n")
	}

	b.WriteString(m.renderContent(m.contentHeight()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// contentHeight is what remains after header, command bar, banners and
// footer.
func (m Model) contentHeight() int {
	return max(m.height-3-m.bannerLines(), 3)
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent(height int) string {
	switch m.currentView {
	case ViewOrders:
		return m.renderOrders(height)
	case ViewHistory:
		return m.renderHistory(height)
	case ViewLogs:
		return m.renderLogs(height)
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type logLinesMsg struct {
	lines []string
	err   error
}

type actionMsg struct {
	orderID    string
	verb       string
	resolution *ordersync.Resolution
	err        error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(board *state.Board, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(board.Snapshot(now()))
	}
}

func forceSyncCmd(ctx context.Context, ctl Controller, orderID string) tea.Cmd {
	return func() tea.Msg {
		err := ctl.ForceSync(ctx, orderID)
		return actionMsg{orderID: orderID, verb: "sync", err: err}
	}
}

func resolveCmd(ctx context.Context, ctl Controller, orderID, status string, at time.Time) tea.Cmd {
	return func() tea.Msg {
		res, err := ctl.ResolveConflict(ctx, orderID, status, at)
		return actionMsg{orderID: orderID, verb: "resolve", resolution: res, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or ctx is
// cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(m.ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
