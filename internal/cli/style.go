package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	colorFailed  = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#f59e0b"}

	stderrStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFailed).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	keyStyle     = lipgloss.NewStyle().Bold(true)
)

// IsTerminal reports whether the file refers to a terminal device.
var IsTerminal = func(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// paint styles each line of text separately so lipgloss does not pad
// lines to a common width. Line breaks are kept as they are.
func paint(style lipgloss.Style, text string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		if body != "" {
			b.WriteString(style.Render(body))
		}
		if len(body) < len(line) {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
