package note

import (
	"fmt"
	"strconv"
	"strings"
)

// Name returns the scientific pitch name of a MIDI number, e.g. "A4".
func Name(midi int) string {
	if midi < 0 || midi > 127 {
		return "--"
	}
	return FromMIDI(midi).String()
}

// Parse accepts a MIDI number ("72") or a pitch name with optional sharp or
// flat and octave ("C5", "F#3", "Bb4", "C-1").
func Parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return InvalidMIDI, fmt.Errorf("empty note")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return InvalidMIDI, fmt.Errorf("midi note %d out of range 0..127", n)
		}
		return n, nil
	}

	letter := strings.ToUpper(s[:1])
	pc := strings.Index("C D EF G A B", letter)
	if pc < 0 {
		return InvalidMIDI, fmt.Errorf("invalid note name %q", s)
	}
	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		pc++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		pc--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return InvalidMIDI, fmt.Errorf("invalid octave in %q", s)
	}
	midi := (octave+1)*12 + pc
	if midi < 0 || midi > 127 {
		return InvalidMIDI, fmt.Errorf("note %q out of range 0..127", s)
	}
	return midi, nil
}
