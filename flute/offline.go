package flute

import (
	"errors"
	"io"

	"github.com/rouderaa/esp32BLEMidiFlute/audio"
	"github.com/rouderaa/esp32BLEMidiFlute/note"
)

type discardSink struct{}

func (discardSink) NoteOn(uint8, uint8, uint8) error  { return nil }
func (discardSink) NoteOff(uint8, uint8, uint8) error { return nil }

// Detect runs the pipeline over samples recorded at p.SampleRate and
// returns one frame per complete block. No MIDI is sent.
func Detect(p *Params, samples []float64, opts ...Option) ([]Frame, error) {
	src := audio.NewBufferSource(samples, p.SampleRate)
	e, err := New(p, src, discardSink{}, opts...)
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(samples)/p.BlockSize)
	for {
		f, err := e.Step()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// PlayedNotes maps frames to the note sounding after each cycle, with
// note.InvalidMIDI for silence.
func PlayedNotes(frames []Frame) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = f.Playing
		if f.Fault {
			out[i] = note.InvalidMIDI
		}
	}
	return out
}
