package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Wrap bounds for entry descriptions.
const (
	descriptionMaxWidth = 100
	descriptionMinWidth = 20
)

// descriptionStyle maps the theme setting to a glamour style. Custom themes
// render as dark; output that is not a terminal gets no escape codes.
func descriptionStyle(theme string, tty bool) string {
	if !tty {
		return "notty"
	}
	if theme == "light" {
		return "light"
	}
	return "dark"
}

// descriptionWidth is the terminal width (or COLUMNS) clamped to the wrap
// bounds.
func descriptionWidth() int {
	w := descriptionMaxWidth
	if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 {
		w = tw
	} else if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		w = cols
	}
	return clampWidth(w - 2)
}

func clampWidth(w int) int {
	switch {
	case w < descriptionMinWidth:
		return descriptionMinWidth
	case w > descriptionMaxWidth:
		return descriptionMaxWidth
	}
	return w
}

// renderDescription renders an entry's markdown description. On a render
// error the raw text is returned.
func renderDescription(text, style string, width int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
