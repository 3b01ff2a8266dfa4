package midiout

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2/gm"
)

// ProgramByName resolves a General MIDI instrument from its program number
// (0-127) or its name. Names match case insensitively and ignore spaces,
// dashes and underscores, so "pan flute", "PanFlute" and "pan_flute" are
// the same instrument.
func ProgramByName(name string) (gm.Instr, error) {
	s := strings.TrimSpace(name)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("%w: program %d out of range", ErrUnknownProgram, n)
		}
		return gm.Instr(n), nil
	}
	want := normalizeName(s)
	if want == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownProgram)
	}
	for i := 0; i < 128; i++ {
		instr := gm.Instr(i)
		if normalizeName(instr.String()) == want {
			return instr, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
}

func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
