package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rouderaa/esp32BLEMidiFlute/dsp"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/cli"
)

const meterWidth = 40

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.AccentColor)
	noteStyle  = lipgloss.NewStyle().Bold(true).Foreground(cli.TextColor).
			Border(lipgloss.RoundedBorder()).BorderForeground(cli.AccentColor).
			Padding(0, 2).Width(10).Align(lipgloss.Center)
	labelStyle = lipgloss.NewStyle().Foreground(cli.MutedColor)
	valueStyle = lipgloss.NewStyle().Bold(true)
	muteStyle  = lipgloss.NewStyle().Bold(true).Foreground(cli.ErrorColor)
	recStyle   = lipgloss.NewStyle().Bold(true).Foreground(cli.WarnColor)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#3BB273"))
	helpStyle  = lipgloss.NewStyle().Foreground(cli.MutedColor).Italic(true)
)

func (m Model) View() string {
	var sb strings.Builder
	f := m.Last

	sb.WriteString(titleStyle.Render(m.Title))
	if m.Port != "" {
		sb.WriteString(labelStyle.Render("  -> " + m.Port))
	}
	sb.WriteString("\n\n")

	name := "--"
	if f.NoteOK {
		name = f.Note.String()
	}
	sb.WriteString(noteStyle.Render(name))
	sb.WriteString("\n")

	sb.WriteString(field("freq", fmt.Sprintf("%7.1f Hz", f.Estimate.Hz)))
	sb.WriteString(field("magnitude", fmt.Sprintf("%7.2f", f.Estimate.Magnitude)))
	sb.WriteString(field("level", fmt.Sprintf("%6.1f dB", dsp.LevelDB(f.RMS))))
	sb.WriteString(field("volume", Meter(f.Volume, meterWidth)+fmt.Sprintf(" %3d%%", f.Volume)))
	sb.WriteString(field("state", f.State.String()))

	var flags []string
	if m.Muted {
		flags = append(flags, muteStyle.Render("MUTED"))
	}
	if f.Recording {
		flags = append(flags, recStyle.Render("REC"))
	}
	if m.Faults > 0 {
		flags = append(flags, recStyle.Render(fmt.Sprintf("%d faults", m.Faults)))
	}
	if len(flags) > 0 {
		sb.WriteString("\n" + strings.Join(flags, "  ") + "\n")
	}

	if len(m.History) > 0 {
		sb.WriteString("\n" + labelStyle.Render("events") + "\n")
		for _, h := range m.History {
			sb.WriteString("  " + h + "\n")
		}
	}
	if m.Status != "" {
		sb.WriteString("\n" + m.Status + "\n")
	}

	up := time.Since(m.started).Truncate(time.Second)
	sb.WriteString("\n" + helpStyle.Render(fmt.Sprintf("m mute  g record  q quit   up %s  cycle %d", up, f.Seq)) + "\n")
	return sb.String()
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + valueStyle.Render(value) + "\n"
}

// Meter draws a volume bar of width cells for a 0..100 percentage.
func Meter(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return barStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}
