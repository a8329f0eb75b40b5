package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ordersync/internal/orderstatus"
	"github.com/five82/ordersync/internal/state"
)

// renderOrders renders the orders view with split layout (table + detail).
func (m Model) renderOrders(height int) string {
	styles := m.theme.Styles()

	if len(m.snapshot.Orders) == 0 {
		emptyMsg := styles.MutedText.Render("No orders tracked")
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var tableWidth int
	if m.width >= 160 {
		tableWidth = m.width * 30 / 100
	} else {
		tableWidth = m.width * 40 / 100
	}
	detailWidth := m.width - tableWidth

	tableTitle := fmt.Sprintf("Orders (%d)", len(m.snapshot.Orders))
	tableContent := m.renderOrderTable(tableWidth-2, m.theme.FocusBg)
	tablePane := m.renderTitledBox(tableTitle, tableContent, tableWidth, height, true)

	var detailContent string
	if order, ok := m.selectedOrder(); ok {
		detailContent = m.renderOrderDetail(order, detailWidth-2, m.theme.SurfaceAlt)
	} else {
		detailContent = lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(m.theme.SurfaceAlt)).
			Render("Select an order")
	}
	detailPane := m.renderTitledBox("Details", detailContent, detailWidth, height, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, detailPane)
}

// renderOrderTable renders the tracked orders as styled rows.
func (m Model) renderOrderTable(width int, bgColor string) string {
	lines := make([]string, 0, len(m.snapshot.Orders))
	for i, order := range m.snapshot.Orders {
		rowBg := bgColor
		selected := i == m.selectedRow
		if selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatOrderRow(order, width, rowBg, selected)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatOrderRow formats an order row with inline colors.
// Format: "#ID Status · flags"
func (m Model) formatOrderRow(order state.OrderView, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)

	status := "waiting"
	if order.HasStatus {
		status = order.StatusText
	}

	var flags []string
	if order.HasStatus && !order.Consistent() {
		flags = append(flags, "!")
	}
	if order.IsOffline() {
		flags = append(flags, "E")
	}
	if _, busy := m.inFlight[order.OrderID]; busy {
		flags = append(flags, "…")
	}

	idStr := "#" + order.OrderID
	flagStr := strings.Join(flags, " ")
	statusWidth := max(width-lipgloss.Width(idStr)-lipgloss.Width(flagStr)-4, 6)

	var idStyle, statusStyle, flagStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		idStyle, statusStyle, flagStyle = selText, selText, selText
	} else {
		styles := m.theme.Styles()
		idStyle = styles.MutedText
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(order.DataStatus)))
		flagStyle = styles.WarningText
		if !order.HasStatus {
			statusStyle = styles.FaintText
		}
	}

	row := bg.Render(idStr, idStyle) + bg.Space() + bg.Render(truncate(status, statusWidth), statusStyle)
	if flagStr != "" {
		row += bg.Render(" · ", idStyle) + bg.Render(flagStr, flagStyle)
	}
	return row
}

// renderOrderDetail renders the detail pane for one order.
func (m Model) renderOrderDetail(order state.OrderView, width int, bgColor string) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles().WithBackground(bgColor)

	var lines []string
	row := func(label, value string, style lipgloss.Style) {
		lines = append(lines, bg.Render(fmt.Sprintf("%-12s", label), styles.MutedText)+bg.Render(value, style))
	}

	lines = append(lines, bg.Render("Order #"+order.OrderID, styles.Text.Bold(true)), "")

	if !order.HasStatus {
		row("Status", "Waiting for first sync", styles.FaintText)
	} else {
		badge := styles.StatusStyle(order.DataStatus).Render(order.DataStatus)
		lines = append(lines, bg.Render(fmt.Sprintf("%-12s", "Status"), styles.MutedText)+badge+bg.Space()+bg.Render(order.StatusText, styles.Text))
		row("Updated", order.TimestampText, styles.Text)
		if order.Consistent() {
			row("Data", "consistent", styles.SuccessText)
		} else {
			row("Data", "inconsistent", styles.WarningText)
		}
	}

	if !order.LastPolled.IsZero() {
		row("Last poll", formatRelative(order.LastPolled, m.now()), styles.Text)
	}
	if order.ConsecutiveFailures > 0 {
		row("Failures", fmt.Sprintf("%d", order.ConsecutiveFailures), styles.DangerText)
	}
	if order.LastError != nil {
		row("Error", truncate(order.LastError.Error(), max(width-14, 10)), styles.DangerText)
	}
	if action, busy := m.inFlight[order.OrderID]; busy {
		row("Running", action, styles.InfoText)
	}

	if order.HasStatus {
		lines = append(lines, "", bg.Render("Next statuses", styles.MutedText.Bold(true)))
		status, known := orderstatus.Parse(order.DataStatus)
		next := status.ValidNext()
		switch {
		case !known:
			lines = append(lines, bg.Render("  unknown status", styles.FaintText))
		case len(next) == 0:
			lines = append(lines, bg.Render("  final", styles.FaintText))
		default:
			for _, s := range next {
				color := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(string(s))))
				lines = append(lines, bg.Render("  "+string(s), color)+bg.Space()+bg.Render(s.DisplayName(), styles.FaintText))
			}
		}
	}

	for i, line := range lines {
		lines[i] = bg.FillLine(line, width)
	}
	return strings.Join(lines, "\n")
}

// renderBanners renders the active warnings and notices, one per line.
func (m Model) renderBanners() string {
	if len(m.snapshot.Banners) == 0 {
		return ""
	}
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	lines := make([]string, 0, len(m.snapshot.Banners))
	for _, b := range m.visibleBanners() {
		style := styles.WarningText.Bold(true)
		tag := "WARN"
		if b.Kind == state.ConflictNotice {
			style = styles.InfoText.Bold(true)
			tag = "SYNC"
		}
		line := bg.Render(tag, style) + bg.Spaces(2) +
			bg.Render("#"+b.OrderID, styles.MutedText) + bg.Space() +
			bg.Render(truncate(b.Message, max(m.width-20, 10)), styles.Text)
		lines = append(lines, bg.FillLine(line, m.width))
	}
	return strings.Join(lines, "\n")
}

const maxBannerLines = 3

func (m Model) visibleBanners() []state.Banner {
	if len(m.snapshot.Banners) > maxBannerLines {
		return m.snapshot.Banners[len(m.snapshot.Banners)-maxBannerLines:]
	}
	return m.snapshot.Banners
}

func (m Model) bannerLines() int {
	return len(m.visibleBanners())
}
