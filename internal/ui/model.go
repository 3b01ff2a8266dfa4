// Package ui is the bubbletea front panel for the live pitch tracker.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rouderaa/esp32BLEMidiFlute/flute"
	"github.com/rouderaa/esp32BLEMidiFlute/tracker"
)

// Controls are the panel actions.
type Controls interface {
	ToggleMute() bool
	Record() (string, error)
}

// FrameMsg carries one engine cycle to the model.
type FrameMsg flute.Frame

// DoneMsg reports that the engine stopped. Send it with tea.Program.Send.
type DoneMsg struct {
	Err error
}

const historyLen = 6

// Model renders frames received from the engine.
type Model struct {
	Title    string
	Port     string
	Controls Controls

	Frames <-chan flute.Frame

	Last    flute.Frame
	History []string
	Status  string
	Faults  int
	Muted   bool
	Err     error

	started time.Time
	width   int
}

// NewModel builds the model. frames is fed by the engine observer.
func NewModel(title, port string, c Controls, frames <-chan flute.Frame) Model {
	return Model{
		Title:    title,
		Port:     port,
		Controls: c,
		Frames:   frames,
		started:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForFrame(m.Frames)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "m":
			if m.Controls != nil {
				m.Muted = m.Controls.ToggleMute()
				if m.Muted {
					m.Status = "muted"
				} else {
					m.Status = "unmuted"
				}
			}
		case "g":
			if m.Controls != nil {
				path, err := m.Controls.Record()
				if err != nil {
					m.Status = "record: " + err.Error()
				} else {
					m.Status = "recording to " + path
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case FrameMsg:
		m = m.apply(flute.Frame(msg))
		return m, waitForFrame(m.Frames)

	case DoneMsg:
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) apply(f flute.Frame) Model {
	if f.Fault {
		m.Faults++
		return m
	}
	m.Last = f
	m.Muted = f.Muted
	for _, ev := range f.Events {
		m.History = append(m.History, eventLine(ev))
	}
	if n := len(m.History); n > historyLen {
		m.History = append([]string(nil), m.History[n-historyLen:]...)
	}
	if f.Recorded != "" {
		m.Status = "saved " + f.Recorded
	}
	return m
}

func eventLine(ev tracker.Event) string {
	return ev.String()
}

func waitForFrame(ch <-chan flute.Frame) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return FrameMsg(f)
	}
}
