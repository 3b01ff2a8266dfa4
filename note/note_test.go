package note

import (
	"math"
	"testing"

	"github.com/rouderaa/esp32BLEMidiFlute/pitch"
)

func newTestQuantizer(t *testing.T) *Quantizer {
	t.Helper()
	q, err := NewQuantizer(DefaultReferenceHz, pitch.DefaultBand())
	if err != nil {
		t.Fatalf("NewQuantizer: %v", err)
	}
	return q
}

func TestQuantizeReferencePoints(t *testing.T) {
	q := newTestQuantizer(t)
	tests := []struct {
		hz     float64
		name   string
		octave int
		midi   int
	}{
		{440, "A", 4, 69},
		{880, "A", 5, 81},
		{220, "A", 3, 57},
		{261.63, "C", 4, 60},
		{523.25, "C", 5, 72},
		{246.94, "B", 3, 59},
		{466.16, "A#", 4, 70},
		{82.41, "E", 2, 40},
		{4186.01, "C", 8, 108},
		{452, "A", 4, 69},
		{430, "A", 4, 69},
	}
	for _, tt := range tests {
		n, ok := q.Quantize(tt.hz)
		if !ok {
			t.Fatalf("Quantize(%g) rejected", tt.hz)
		}
		if n.Name != tt.name || n.Octave != tt.octave || n.MIDI != tt.midi {
			t.Fatalf("Quantize(%g) = %+v, want %s%d midi %d", tt.hz, n, tt.name, tt.octave, tt.midi)
		}
	}
}

func TestQuantizeRejectsOutOfBand(t *testing.T) {
	q := newTestQuantizer(t)
	for _, hz := range []float64{0, -440, 50, 79.9, 5000.1, 8000, math.NaN(), math.Inf(1)} {
		n, ok := q.Quantize(hz)
		if ok || n.MIDI != InvalidMIDI {
			t.Fatalf("Quantize(%g) = %+v, %v; want rejection", hz, n, ok)
		}
	}
}

func TestQuantizeFlagsMIDIOutsideRange(t *testing.T) {
	q, err := NewQuantizer(440, pitch.Band{MinHz: 1, MaxHz: 20000})
	if err != nil {
		t.Fatalf("NewQuantizer: %v", err)
	}
	// G9 is MIDI 127; A9 would be 129.
	if n, ok := q.Quantize(14080); ok || n.MIDI != InvalidMIDI {
		t.Fatalf("expected MIDI above 127 to be invalid, got %+v", n)
	}
	// Below C-1 (8.18 Hz).
	if n, ok := q.Quantize(4); ok || n.MIDI != InvalidMIDI {
		t.Fatalf("expected MIDI below 0 to be invalid, got %+v", n)
	}
	if n, ok := q.Quantize(12543.85); !ok || n.MIDI != 127 {
		t.Fatalf("expected G9 = 127, got %+v %v", n, ok)
	}
}

func TestQuantizeHonorsReference(t *testing.T) {
	q, err := NewQuantizer(415, pitch.DefaultBand())
	if err != nil {
		t.Fatalf("NewQuantizer: %v", err)
	}
	n, ok := q.Quantize(415)
	if !ok || n.MIDI != 69 {
		t.Fatalf("baroque A: %+v", n)
	}
}

func TestNewQuantizerValidates(t *testing.T) {
	if _, err := NewQuantizer(0, pitch.DefaultBand()); err == nil {
		t.Fatalf("expected error for zero reference")
	}
	if _, err := NewQuantizer(440, pitch.Band{MinHz: 100, MaxHz: 50}); err == nil {
		t.Fatalf("expected error for inverted band")
	}
}

func TestFromOffsetNegativeOctaves(t *testing.T) {
	tests := []struct {
		off    int
		name   string
		octave int
	}{
		{0, "A", 4},
		{-9, "C", 4},
		{-10, "B", 3},
		{-21, "C", 3},
		{-69, "C", -1},
		{3, "C", 5},
		{2, "B", 4},
	}
	for _, tt := range tests {
		n := FromOffset(tt.off)
		if n.Name != tt.name || n.Octave != tt.octave || n.MIDI != 69+tt.off {
			t.Errorf("FromOffset(%d) = %+v, want %s%d", tt.off, n, tt.name, tt.octave)
		}
	}
}

func TestFrequency(t *testing.T) {
	tests := []struct {
		midi int
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6256},
	}
	for _, tt := range tests {
		got := Frequency(tt.midi, 440)
		if math.Abs(got-tt.want)/tt.want > 1e-3 {
			t.Errorf("Frequency(%d) = %g, want %g", tt.midi, got, tt.want)
		}
	}
}

func TestFrequencyRoundTrip(t *testing.T) {
	q, err := NewQuantizer(440, pitch.Band{MinHz: 20, MaxHz: 12000})
	if err != nil {
		t.Fatalf("NewQuantizer: %v", err)
	}
	for midi := 16; midi <= 126; midi++ {
		n, ok := q.Quantize(Frequency(midi, 440))
		if !ok || n.MIDI != midi {
			t.Fatalf("round trip %d -> %+v", midi, n)
		}
	}
}
