// Package cli holds the terminal styling shared by the command line tools.
package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(WarnColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(WarnColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3BB273")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Italic(true)
)

// HelpPrinter returns a kong help printer that renders flags with lipgloss.
func HelpPrinter(title, description string) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(helpTitleStyle.Render(title))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render(description))
		sb.WriteString("\n")

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		fmt.Fprintf(&sb, "\n  %s [flags]\n", ctx.Model.Name)

		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Flags:"))
		sb.WriteString("\n")
		for _, f := range flagRows(ctx) {
			sb.WriteString("  ")
			sb.WriteString(helpFlagStyle.Render(fmt.Sprintf("%-24s", f.flags)))
			sb.WriteString(" ")
			sb.WriteString(f.help)
			if f.def != "" {
				sb.WriteString(" ")
				sb.WriteString(helpDefaultStyle.Render("(default: " + f.def + ")"))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		_, err := fmt.Fprint(ctx.Stdout, sb.String())
		return err
	}
}

type flagRow struct {
	flags string
	help  string
	def   string
}

func flagRows(ctx *kong.Context) []flagRow {
	rows := []flagRow{{flags: "-h, --help", help: "Show this help."}}
	for _, f := range ctx.Model.Node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}
		s := "--" + f.Name
		if f.Short != 0 {
			s = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() {
			ph := f.PlaceHolder
			if ph == "" {
				ph = f.Name
			}
			s += "=" + strings.ToUpper(ph)
		}
		rows = append(rows, flagRow{flags: s, help: f.Help, def: f.Default})
	}
	return rows
}
