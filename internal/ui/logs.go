package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ordersync/internal/logtail"
)

// logLineLimit bounds how much of the log file is loaded into the view.
const logLineLimit = 500

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleScope):
		m.logAllOrders = !m.logAllOrders
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Top):
		m.logFollow = false
		m.logViewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	// Scrolling away from the tail stops following
	if !m.logViewport.AtBottom() {
		m.logFollow = false
	}
	return m, cmd
}

// refreshLogs reads the tail of the log file, scoped to the selected order
// unless all orders are shown.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logFile
	if path == "" {
		return nil
	}
	var keep func(string) bool
	if order, ok := m.selectedOrder(); ok && !m.logAllOrders {
		keep = logtail.ForOrder(order.OrderID)
	}
	return func() tea.Msg {
		raw, err := logtail.ReadFunc(path, logLineLimit, keep)
		if err != nil {
			return logLinesMsg{err: err}
		}
		lines := make([]string, 0, len(raw))
		for _, line := range raw {
			lines = append(lines, logtail.Format(logtail.Parse(line)))
		}
		return logLinesMsg{lines: lines}
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs(height int) string {
	title := "Logs (all orders)"
	if order, ok := m.selectedOrder(); ok && !m.logAllOrders {
		title = fmt.Sprintf("Logs (#%s)", order.OrderID)
	}
	if !m.logFollow {
		title += " [paused]"
	}
	return m.renderTitledBox(title, m.logViewport.View(), m.width, height, true)
}

// updateLogViewport refreshes the log content with level colors.
func (m *Model) updateLogViewport() {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	width := m.logViewport.Width

	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logFile == "" {
		m.logViewport.SetContent(bg.FillLine(bg.Render("Logging to file is disabled", styles.MutedText), width))
		return
	}
	if len(m.logLines) == 0 {
		m.logViewport.SetContent(bg.FillLine(bg.Render("No log lines yet", styles.MutedText), width))
		return
	}

	lines := make([]string, 0, len(m.logLines))
	for _, line := range m.logLines {
		lines = append(lines, bg.FillLine(bg.Render(truncate(line, max(width, 1)), m.logLineStyle(line, styles)), width))
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}

// logLineStyle colors a formatted line by its level column.
func (m Model) logLineStyle(line string, styles Styles) lipgloss.Style {
	fields := strings.Fields(line)
	level := ""
	if len(fields) >= 2 {
		level = fields[1]
	}
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.Text
	}
}
