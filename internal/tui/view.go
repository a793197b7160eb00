package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/output"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	var sections []string

	sections = append(sections, m.renderTimer())
	sections = append(sections, m.renderFeatures())
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) panel(title, body string) string {
	content := panelTitleStyle.Render(title) + "\n" + body
	if m.Width > 0 && m.Width < MinWidth {
		return content
	}
	style := panelStyle
	if m.Width > 0 {
		style = style.Width(m.Width - 2)
	}
	return style.Render(content)
}

// renderTimer shows the running entry. Hidden unless tray_timer is enabled.
func (m Model) renderTimer() string {
	if m.Fetching && m.LastRefresh.IsZero() {
		return m.panel("Timer", m.spinner.View()+" Loading...")
	}
	if !m.TimerEnabled {
		return m.panel("Timer", subtleStyle.Render("Live timer is not enabled for this account"))
	}

	st := m.TimerState()
	if !st.Active {
		return m.panel("Timer", subtleStyle.Render("No timer running"))
	}

	title := *st.Title
	if m.Width >= MinWidth {
		// panel border and padding take 6 columns
		title = ansi.Truncate(title, m.Width-6, "…")
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	if m.Entry.Project != "" {
		sb.WriteString("  " + subtleStyle.Render(m.Entry.Project))
	}
	sb.WriteString("\n")
	sb.WriteString(elapsedStyle.Render(output.FormatElapsed(st.Elapsed())))
	return m.panel("Timer", sb.String())
}

func (m Model) renderFeatures() string {
	var lines []string
	for _, f := range features.ListAll() {
		enabled, known := m.Flags.Lookup(f.Name)
		lines = append(lines, fmt.Sprintf("%-16s %s", f.Name, output.FeatureBadge(enabled, known)))
	}
	title := "Features"
	if m.Flags.Loading {
		title += " " + m.spinner.View()
	}
	if m.Flags.Error != "" {
		lines = append(lines, errorStyle.Render(m.Flags.Error))
	}
	return m.panel(title, strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	var parts []string
	if m.Err != nil {
		parts = append(parts, errorStyle.Render("Error: "+m.Err.Error()))
	}
	if m.Status != "" {
		parts = append(parts, m.Status)
	}
	if !m.LastRefresh.IsZero() {
		parts = append(parts, subtleStyle.Render("updated "+output.FormatTimeAgo(m.LastRefresh)))
	}

	if m.UpdateAvail != nil {
		parts = append(parts, updateStyle.Render(fmt.Sprintf("%s available: %s", m.UpdateAvail.LatestVersion, m.UpdateAvail.UpdateCommand)))
	}

	keys := "q quit  r reload  c clear"
	if m.TimerEnabled && m.Entry != nil {
		keys += "  s stop"
	}
	parts = append(parts, helpStyle.Render(keys))
	return strings.Join(parts, "  ")
}
