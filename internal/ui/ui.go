// Package ui provides styled terminal output for the vireo CLI.
// Styling is disabled automatically when stdout is not an interactive
// terminal, so piped and CI output stays plain.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var styled = detectTTY()

// detectTTY decides whether to render styles, honoring NO_COLOR and
// TERM=dumb.
func detectTTY() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// SetStyled forces styling on or off, overriding terminal detection.
func SetStyled(on bool) { styled = on }

func render(style lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return style.Render(text)
}

// Success renders a check-marked success line.
func Success(text string) string { return render(successStyle, "✓ "+text) }

// Error renders a cross-marked error line.
func Error(text string) string { return render(errorStyle, "✗ "+text) }

// Warning renders a warning line.
func Warning(text string) string { return render(warningStyle, "⚠ "+text) }

// Header renders a bold section header.
func Header(text string) string { return render(headerStyle, text) }

// Dim renders de-emphasized text.
func Dim(text string) string { return render(dimStyle, text) }

// Section renders a header with an underline separator.
func Section(title string) string {
	return Header(title) + "\n" + Dim(strings.Repeat("─", len([]rune(title))))
}

// KeyValue renders a dimmed key with its value.
func KeyValue(key, value string) string {
	return Dim(key+": ") + value
}

// Count renders a count with the correct plural form.
func Count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
