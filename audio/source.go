// Package audio provides block sources for the pitch pipeline and a
// recorder for raw input capture.
package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/internal/wavio"
)

// ErrClosed is returned by Acquire after a source has been closed.
var ErrClosed = errors.New("audio source closed")

// Source delivers fixed-size sample blocks. Acquire blocks until block is
// completely filled. A non-nil error other than io.EOF is an acquisition
// fault: the block contents are undefined and the caller should retry later.
// io.EOF ends the stream.
type Source interface {
	Acquire(block []float64) error
	SampleRate() int
}

// BufferOption configures a BufferSource.
type BufferOption func(*BufferSource)

// WithRealtime paces Acquire to the sample clock, like a live device.
func WithRealtime() BufferOption {
	return func(b *BufferSource) {
		b.realtime = true
	}
}

// WithLoop restarts playback at the beginning instead of returning io.EOF.
func WithLoop() BufferOption {
	return func(b *BufferSource) {
		b.loop = true
	}
}

// BufferSource serves an in-memory signal block by block. A trailing
// partial block is never delivered.
type BufferSource struct {
	data     []float64
	rate     int
	pos      int
	realtime bool
	loop     bool
	next     time.Time
	sleep    func(time.Duration)
	now      func() time.Time
}

// NewBufferSource wraps data sampled at sampleRate.
func NewBufferSource(data []float64, sampleRate int, opts ...BufferOption) *BufferSource {
	b := &BufferSource{
		data:  data,
		rate:  sampleRate,
		sleep: time.Sleep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OpenWAV loads a WAV file as a mono BufferSource at sampleRate, resampling
// when the file rate differs.
func OpenWAV(path string, sampleRate int, opts ...BufferOption) (*BufferSource, error) {
	data, rate, err := wavio.ReadMono(path)
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, fmt.Errorf("wav %s: invalid sample rate %d", path, rate)
	}
	data, err = wavio.Resample(data, rate, sampleRate)
	if err != nil {
		return nil, err
	}
	return NewBufferSource(data, sampleRate, opts...), nil
}

// Acquire copies the next len(block) samples into block.
func (b *BufferSource) Acquire(block []float64) error {
	if len(block) == 0 {
		return nil
	}
	if b.pos+len(block) > len(b.data) {
		if !b.loop || len(block) > len(b.data) {
			return io.EOF
		}
		b.pos = 0
	}
	copy(block, b.data[b.pos:b.pos+len(block)])
	b.pos += len(block)

	if b.realtime && b.rate > 0 {
		period := time.Duration(len(block)) * time.Second / time.Duration(b.rate)
		now := b.now()
		if b.next.IsZero() {
			b.next = now
		}
		b.next = b.next.Add(period)
		if d := b.next.Sub(now); d > 0 {
			b.sleep(d)
		}
	}
	return nil
}

// SampleRate returns the rate of the served signal.
func (b *BufferSource) SampleRate() int {
	return b.rate
}

// Len returns the total number of samples.
func (b *BufferSource) Len() int {
	return len(b.data)
}

// Position returns the index of the next sample to be served.
func (b *BufferSource) Position() int {
	return b.pos
}

// Rewind restarts playback from the first sample.
func (b *BufferSource) Rewind() {
	b.pos = 0
	b.next = time.Time{}
}
