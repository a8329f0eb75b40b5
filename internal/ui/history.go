package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ordersync/internal/orderstatus"
)

// renderHistory renders the status change history view.
func (m Model) renderHistory(height int) string {
	title := fmt.Sprintf("History (%d)", len(m.snapshot.History))
	return m.renderTitledBox(title, m.historyViewport.View(), m.width, height, true)
}

// updateHistoryViewport refreshes the history content, newest first.
func (m *Model) updateHistoryViewport() {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	width := m.historyViewport.Width

	m.historyViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	history := m.snapshot.History
	if len(history) == 0 {
		m.historyViewport.SetContent(bg.FillLine(bg.Render("No status changes yet", styles.MutedText), width))
		return
	}

	lines := make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		ev := history[i]
		oldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(ev.OldStatus)))
		newStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(ev.NewStatus)))

		line := bg.Render(ev.Timestamp.Local().Format("15:04:05"), styles.FaintText) + bg.Space() +
			bg.Render(fmt.Sprintf("#%-10s", ev.OrderID), styles.MutedText) + bg.Space() +
			bg.Render(ev.OldStatus, oldStyle) +
			bg.Render(" → ", styles.FaintText) +
			bg.Render(ev.NewStatus, newStyle) + bg.Space() +
			bg.Render(orderstatus.DisplayName(ev.NewStatus), styles.Text)
		if !ev.ValidTransition {
			line += bg.Spaces(2) + bg.Render("unexpected", styles.WarningText.Bold(true))
		}
		lines = append(lines, bg.FillLine(line, width))
	}
	m.historyViewport.SetContent(strings.Join(lines, "\n"))
}
