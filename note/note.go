// Package note maps frequencies to equal-tempered note identities.
package note

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
	"github.com/rouderaa/esp32BLEMidiFlute/pitch"
)

const (
	// InvalidMIDI marks a note that has no MIDI number.
	InvalidMIDI = -1

	// A4MIDI is the MIDI number of the reference pitch.
	A4MIDI = 69

	// DefaultReferenceHz is concert pitch.
	DefaultReferenceHz = 440.0
)

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a quantized pitch.
type Note struct {
	Name       string `json:"name"`
	PitchClass int    `json:"pitch_class"`
	Octave     int    `json:"octave"`
	MIDI       int    `json:"midi"`
}

// Valid reports whether n carries a MIDI number in 0..127.
func (n Note) Valid() bool {
	return n.MIDI >= 0 && n.MIDI <= 127
}

func (n Note) String() string {
	if n.Name == "" {
		return "--"
	}
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// Quantizer rounds frequencies to the nearest semitone of a reference tuning.
type Quantizer struct {
	ref  float64
	band pitch.Band
}

// NewQuantizer creates a quantizer tuned to referenceHz (the frequency of A4)
// that only classifies frequencies inside band.
func NewQuantizer(referenceHz float64, band pitch.Band) (*Quantizer, error) {
	if !(referenceHz > 0) || math.IsInf(referenceHz, 0) {
		return nil, fmt.Errorf("reference pitch must be > 0: %g", referenceHz)
	}
	if band.MinHz <= 0 || band.MaxHz <= band.MinHz {
		return nil, fmt.Errorf("invalid band %g..%g Hz", band.MinHz, band.MaxHz)
	}
	return &Quantizer{ref: referenceHz, band: band}, nil
}

// Quantize returns the note nearest to hz. Frequencies outside the band and
// notes outside the MIDI range return ok == false; the MIDI field is then
// InvalidMIDI.
func (q *Quantizer) Quantize(hz float64) (Note, bool) {
	if math.IsNaN(hz) || !q.band.Contains(hz) {
		return Note{MIDI: InvalidMIDI}, false
	}
	off := int(math.Round(12 * math.Log2(hz/q.ref)))
	n := FromOffset(off)
	if !n.Valid() {
		n.MIDI = InvalidMIDI
		return n, false
	}
	return n, true
}

// FromOffset builds the note off semitones away from A4.
func FromOffset(off int) Note {
	pc := ((off+9)%12 + 12) % 12
	return Note{
		Name:       pitchClassNames[pc],
		PitchClass: pc,
		Octave:     4 + floorDiv(off+9, 12),
		MIDI:       A4MIDI + off,
	}
}

// FromMIDI builds the note for a MIDI number.
func FromMIDI(midi int) Note {
	return FromOffset(midi - A4MIDI)
}

// Frequency converts a MIDI number to Hz for the given A4 reference.
func Frequency(midi int, referenceHz float64) float64 {
	exponent := float64(midi-A4MIDI) / 12.0
	return referenceHz * pow2Approx(exponent)
}

func pow2Approx(x float64) float64 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
