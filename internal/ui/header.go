package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100
	sep := bg.Spaces(2)

	parts := []string{bg.Render("ordersync", styles.Logo)}

	if m.paused {
		parts = append(parts, bg.Render("● PAUSED", styles.WarningText.Bold(true)))
	} else {
		parts = append(parts, bg.Render("● LIVE", styles.SuccessText))
	}

	orders := m.snapshot.Orders
	offline, inconsistent := m.countProblemOrders()
	parts = append(parts,
		bg.Render("Orders:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(orders)), styles.Text),
	)

	inconsistentStyle := styles.MutedText
	if inconsistent > 0 {
		inconsistentStyle = styles.WarningText
	}
	offlineStyle := styles.MutedText
	if offline > 0 {
		offlineStyle = styles.DangerText
	}
	if compact {
		parts = append(parts,
			bg.Render("I:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", inconsistent), inconsistentStyle)+
				sep+bg.Render("•", styles.FaintText)+sep+
				bg.Render("E:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", offline), offlineStyle),
		)
	} else {
		parts = append(parts,
			bg.Render("Inconsistent:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", inconsistent), inconsistentStyle)+
				sep+bg.Render("•", styles.FaintText)+sep+
				bg.Render("Failing:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", offline), offlineStyle),
		)
	}

	if timeStr := m.formatTimestamp(); timeStr != "" {
		parts = append(parts, bg.Render(timeStr, styles.MutedText))
	}

	if m.apiBase != "" && !compact {
		parts = append(parts, bg.Render(truncateMiddle(m.apiBase, 40), styles.FaintText))
	}

	// Most recent poll error across all orders
	if err := m.latestError(); err != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render(classifyConnectionError(err), styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(err.Error(), maxErr), styles.DangerText),
		)
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// countProblemOrders returns how many orders are failing to poll and how
// many carry an inconsistent snapshot.
func (m Model) countProblemOrders() (offline, inconsistent int) {
	for _, o := range m.snapshot.Orders {
		if o.IsOffline() {
			offline++
		}
		if o.HasStatus && !o.Consistent() {
			inconsistent++
		}
	}
	return
}

func (m Model) latestError() error {
	var (
		latest error
		at     time.Time
	)
	for _, o := range m.snapshot.Orders {
		if o.LastError != nil && !o.LastPolled.Before(at) {
			latest, at = o.LastError, o.LastPolled
		}
	}
	return latest
}

// formatTimestamp formats the last refresh time with a relative indicator.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}
	return formatRelative(m.lastUpdated, m.now())
}

func formatRelative(t, now time.Time) string {
	since := now.Sub(t)
	s := t.Format("15:04:05")
	switch {
	case since < time.Minute:
		s += " (now)"
	case since < time.Hour:
		s += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		s += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return s
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logFollow {
			followLabel = "Follow"
		}
		scopeLabel := "All"
		if m.logAllOrders {
			scopeLabel = "Selected"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"a", scopeLabel},
			{"o", "Orders"},
			{"y", "History"},
			{"?", "More"},
		}
	case ViewHistory:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"o", "Orders"},
			{"l", "Logs"},
			{"?", "More"},
		}
	default: // ViewOrders
		pauseLabel := "Pause"
		if m.paused {
			pauseLabel = "Resume"
		}
		commands = []cmd{
			{"j/k", "Navigate"},
			{"r", "Sync"},
			{"c", "Resolve"},
			{"x", "Dismiss"},
			{"p", pauseLabel},
			{"y", "History"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// renderFooter shows the last action result, or the short key help.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.flash != "" {
		style := styles.MutedText
		if m.flashErr {
			style = styles.DangerText
		}
		return lipgloss.NewStyle().Width(m.width).Render(style.Render(truncate(m.flash, max(m.width, 1))))
	}
	return m.help.View(m.keys)
}
