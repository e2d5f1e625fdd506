// Package ui holds the shared terminal styling for the host-side tools.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the host tools
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected, running
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60 // Minimum supported terminal width
	MaxContentWidth  = 90 // Maximum content width before capping
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(2)

	keyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// ErrorStyle is for fatal error lines on the way out.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// StatusStyle is for one-line status updates.
	StatusStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)
)

// GetTerminalWidth returns the current terminal width, with fallback.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// Banner renders a bordered startup header with a title and aligned
// key/value detail lines.
type Banner struct {
	Title  string
	Params [][2]string // Ordered key/value pairs
}

// Render returns the styled banner as a string.
func (b *Banner) Render() string {
	width := GetTerminalWidth()

	titleLine := titleStyle.Render(strings.ToUpper(b.Title))

	dividerWidth := width - 6
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", dividerWidth))

	var paramLines []string
	for _, kv := range b.Params {
		key := keyStyle.Render(kv[0] + ":")
		value := valueStyle.Render(kv[1])
		paramLines = append(paramLines, key+" "+value)
	}

	var content string
	if len(paramLines) > 0 {
		content = lipgloss.JoinVertical(lipgloss.Left,
			titleLine, divider, strings.Join(paramLines, "\n"))
	} else {
		content = titleLine
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}
