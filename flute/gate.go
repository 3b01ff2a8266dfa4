package flute

import "sync/atomic"

// Gate reports whether output is muted. It is polled once per cycle.
type Gate interface {
	Muted() bool
}

// Switch is a Gate toggled from another goroutine, like a panel key.
type Switch struct {
	muted atomic.Bool
}

// Muted implements Gate.
func (s *Switch) Muted() bool {
	return s.muted.Load()
}

// Set mutes or unmutes.
func (s *Switch) Set(muted bool) {
	s.muted.Store(muted)
}

// Toggle flips the state and returns the new one.
func (s *Switch) Toggle() bool {
	for {
		old := s.muted.Load()
		if s.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
