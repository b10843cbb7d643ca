package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	markedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	annotationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// View renders the viewer.
func (a App) View() string {
	if a.width == 0 || a.height == 0 || !a.ready {
		return "connecting..."
	}

	title := titleStyle.Render(" dwcap ") + dimStyle.Render(a.socketPath)
	stream := paneStyle.Width(a.width - 4).Render(a.vp.View())
	statusBar := a.renderStatusBar()
	help := helpStyle.Render("space pause · f follow · / filter · g/G top/bottom · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, stream, statusBar, help)
}

// refreshContent re-renders the scrollback into the viewport.
func (a *App) refreshContent() {
	if !a.ready {
		return
	}
	lines := make([]string, 0, len(a.entries))
	for _, e := range a.visibleEntries() {
		switch {
		case e.annotation:
			lines = append(lines, annotationStyle.Render("  "+e.text))
		case e.marked:
			lines = append(lines, markedStyle.Render(e.text))
		default:
			lines = append(lines, e.text)
		}
	}
	a.vp.SetContent(strings.Join(lines, "\n"))
	if a.follow {
		a.vp.GotoBottom()
	}
}

func (a App) renderStatusBar() string {
	var parts []string

	if a.connected {
		parts = append(parts, markedStyle.Render("●")+" capturing")
		parts = append(parts, fmt.Sprintf("%s @ %d", a.status.Device, a.status.Baud))
		parts = append(parts, fmt.Sprintf("marker %q", a.status.Marker))
		parts = append(parts, fmt.Sprintf("%d lines / %d marked", a.status.Lines, a.status.Marked))
	} else {
		parts = append(parts, errStyle.Render("○ disconnected"))
	}
	if a.paused {
		parts = append(parts, annotationStyle.Render("PAUSED"))
	}
	if a.filtering || a.filter.Value() != "" {
		parts = append(parts, "filter: "+a.filter.View())
	}
	if a.statusMsg != "" {
		parts = append(parts, dimStyle.Render(a.statusMsg))
	}

	return " " + strings.Join(parts, dimStyle.Render("  │  "))
}
