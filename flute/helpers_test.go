package flute

import (
	"errors"
	"fmt"
	"io"
	"math"
)

type step struct {
	hz  float64 // 0 means silence
	err error
}

// scriptSource plays a fixed list of tone blocks, then returns io.EOF.
type scriptSource struct {
	rate  int
	steps []step
	pos   int
	phase float64
}

func (s *scriptSource) Acquire(block []float64) error {
	if s.pos >= len(s.steps) {
		return io.EOF
	}
	st := s.steps[s.pos]
	s.pos++
	if st.err != nil {
		return st.err
	}
	for i := range block {
		if st.hz == 0 {
			block[i] = 0
			continue
		}
		block[i] = 0.5 * math.Sin(s.phase)
		s.phase += 2 * math.Pi * st.hz / float64(s.rate)
	}
	return nil
}

func (s *scriptSource) SampleRate() int { return s.rate }

func tones(hz float64, n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = step{hz: hz}
	}
	return out
}

func script(parts ...[]step) *scriptSource {
	var all []step
	for _, p := range parts {
		all = append(all, p...)
	}
	return &scriptSource{rate: 16000, steps: all}
}

type recordingSink struct {
	events []string
	err    error
}

func (r *recordingSink) NoteOn(ch, key, vel uint8) error {
	r.events = append(r.events, fmt.Sprintf("on %d", key))
	return r.err
}

func (r *recordingSink) NoteOff(ch, key, vel uint8) error {
	r.events = append(r.events, fmt.Sprintf("off %d", key))
	return r.err
}

var errMic = errors.New("i2s read failed")

const (
	hzC5 = 523.25
	hzE5 = 659.26
	hzA3 = 220.0
	hzA4 = 440.0
)
