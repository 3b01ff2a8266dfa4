// Package tracker turns a per-block note stream into note-on/note-off events.
package tracker

import (
	"fmt"

	"github.com/rouderaa/esp32BLEMidiFlute/note"
)

// Kind distinguishes note-on from note-off.
type Kind int

const (
	Off Kind = iota
	On
)

func (k Kind) String() string {
	if k == On {
		return "on"
	}
	return "off"
}

// Event is one MIDI note transition.
type Event struct {
	Kind     Kind  `json:"kind"`
	Channel  uint8 `json:"channel"`
	MIDI     int   `json:"midi"`
	Velocity uint8 `json:"velocity"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s ch=%d vel=%d", e.Kind, note.Name(e.MIDI), e.Channel, e.Velocity)
}

// State is the tracker's phase.
type State int

const (
	Silent State = iota
	Sounding
)

func (s State) String() string {
	if s == Sounding {
		return "sounding"
	}
	return "silent"
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithChannel sets the MIDI channel (0..15) of emitted events.
func WithChannel(ch uint8) Option {
	return func(t *Tracker) {
		t.channel = ch & 0x0f
	}
}

// WithVelocity sets the velocity of emitted events.
func WithVelocity(v uint8) Option {
	return func(t *Tracker) {
		t.velocity = v & 0x7f
	}
}

// WithRange limits playable notes to [min, max]. Notes outside the range
// are handled like silence.
func WithRange(min, max int) Option {
	return func(t *Tracker) {
		t.min, t.max = min, max
	}
}

// Tracker debounces quantized notes. It is not safe for concurrent use;
// the control loop owns it.
type Tracker struct {
	channel  uint8
	velocity uint8
	min, max int

	prev     int
	sounding bool

	events []Event
}

// New returns a silent tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		velocity: 127,
		min:      0,
		max:      127,
		prev:     note.InvalidMIDI,
		events:   make([]Event, 0, 2),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update advances the state machine by one block. ok reports whether n is a
// usable estimate; muted forces silence regardless of pitch. The returned
// slice is reused by the next call.
func (t *Tracker) Update(n note.Note, ok bool, muted bool) []Event {
	t.events = t.events[:0]

	if muted || !ok || !t.playable(n.MIDI) {
		t.silence()
		return t.events
	}

	if t.sounding && n.MIDI == t.prev {
		return t.events
	}
	t.silence()
	t.events = append(t.events, t.event(On, n.MIDI))
	t.prev = n.MIDI
	t.sounding = true
	return t.events
}

// Release silences any sounding note, e.g. on shutdown.
func (t *Tracker) Release() []Event {
	t.events = t.events[:0]
	t.silence()
	return t.events
}

// State returns the current phase.
func (t *Tracker) State() State {
	if t.sounding {
		return Sounding
	}
	return Silent
}

// Current returns the sounding MIDI number, or note.InvalidMIDI when silent.
func (t *Tracker) Current() int {
	if !t.sounding {
		return note.InvalidMIDI
	}
	return t.prev
}

func (t *Tracker) silence() {
	if !t.sounding {
		return
	}
	t.events = append(t.events, t.event(Off, t.prev))
	t.sounding = false
}

func (t *Tracker) playable(midi int) bool {
	return midi >= 0 && midi <= 127 && midi >= t.min && midi <= t.max
}

func (t *Tracker) event(k Kind, midi int) Event {
	return Event{Kind: k, Channel: t.channel, MIDI: midi, Velocity: t.velocity}
}
