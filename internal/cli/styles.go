package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared with the TUI.
var (
	AccentColor = lipgloss.Color("#2E86AB")
	WarnColor   = lipgloss.Color("#F18F01")
	ErrorColor  = lipgloss.Color("#C73E1D")
	MutedColor  = lipgloss.Color("#888888")
	TextColor   = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ErrorColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)
)

// PrintVersion prints the program name and version.
func PrintVersion(name, version string) {
	fmt.Println(TitleStyle.Render(name))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
}

// PrintError prints a styled error to stderr.
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintField prints one aligned key/value line.
func PrintField(key string, value any) {
	fmt.Printf("%s %s\n", KeyStyle.Render(fmt.Sprintf("%-12s", key+":")), ValueStyle.Render(fmt.Sprint(value)))
}
