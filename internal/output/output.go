// Package output provides styled terminal output helpers (success, error,
// warning, time entry and feature formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tockapp/tock/internal/apiclient"
	"golang.org/x/term"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	projectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeFeatureDisabled = "feature_disabled"
	ErrCodeNetworkError    = "network_error"
	ErrCodeNoActiveEntry   = "no_active_entry"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Println(string(data))
}

// FeatureBadge renders a feature's cached state.
// e.g., "✓ enabled", "✗ disabled", "? unknown"
func FeatureBadge(enabled, known bool) string {
	switch {
	case !known:
		return subtleStyle.Render("? unknown")
	case enabled:
		return successStyle.Render("✓ enabled")
	default:
		return errorStyle.Render("✗ disabled")
	}
}

// FormatElapsed formats a running duration as H:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// FormatDuration formats a duration compactly, e.g. "1h 5m", "12m", "40s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// EntryDuration returns how long an entry ran, or has been running as of now.
func EntryDuration(e *apiclient.TimeEntry, now time.Time) time.Duration {
	start, err := e.Started()
	if err != nil {
		return 0
	}
	end := now
	if e.EndTime != nil {
		if t, err := time.Parse(time.RFC3339, *e.EndTime); err == nil {
			end = t
		}
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// FormatEntryShort formats a time entry on one line.
func FormatEntryShort(e *apiclient.TimeEntry, now time.Time) string {
	var parts []string
	parts = append(parts, titleStyle.Render(fmt.Sprintf("#%d", e.ID)))
	parts = append(parts, e.Title)
	if e.Project != "" {
		parts = append(parts, projectStyle.Render(e.Project))
	}
	if len(e.Tags) > 0 {
		parts = append(parts, tagStyle.Render(strings.Join(e.Tags, ",")))
	}
	dur := FormatDuration(EntryDuration(e, now))
	if e.IsActive {
		parts = append(parts, activeStyle.Render("▶ "+dur))
	} else {
		parts = append(parts, subtleStyle.Render(dur))
	}
	return strings.Join(parts, "  ")
}

// FormatEntryLong formats a time entry in long format. The description is
// rendered as markdown in the glamour style matching theme.
func FormatEntryLong(e *apiclient.TimeEntry, now time.Time, theme string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d: %s", e.ID, e.Title)))
	sb.WriteString("\n")
	if e.IsActive {
		sb.WriteString(fmt.Sprintf("Status: %s\n", activeStyle.Render("running")))
	} else {
		sb.WriteString(fmt.Sprintf("Status: %s\n", subtleStyle.Render("stopped")))
	}
	if e.Project != "" {
		sb.WriteString(fmt.Sprintf("Project: %s\n", e.Project))
	}
	if start, err := e.Started(); err == nil {
		sb.WriteString(fmt.Sprintf("Started: %s (%s)\n", start.Local().Format("2006-01-02 15:04"), FormatTimeAgo(start)))
	}
	sb.WriteString(fmt.Sprintf("Duration: %s\n", FormatDuration(EntryDuration(e, now))))
	if len(e.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(e.Tags, ", ")))
	}

	if e.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Description:"))
		sb.WriteString("\n")
		style := descriptionStyle(theme, term.IsTerminal(int(os.Stdout.Fd())))
		sb.WriteString(renderDescription(e.Description, style, descriptionWidth()))
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatProject formats a project on one line.
func FormatProject(p *apiclient.Project) string {
	line := fmt.Sprintf("%s  %s", titleStyle.Render(fmt.Sprintf("#%d", p.ID)), p.Title)
	if p.Description != "" {
		line += "  " + subtleStyle.Render(p.Description)
	}
	return line
}

// MaskToken hides all but the last four characters of a token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nENABLED:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// BulletList formats items as a bulleted list with optional indentation
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
