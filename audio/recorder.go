package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/internal/wavio"
)

// ErrRecording is returned by Arm while a capture is in progress.
var ErrRecording = errors.New("recording already in progress")

// RecordBitDepth is the PCM depth of captured files.
const RecordBitDepth = 24

// Recorder captures a fixed length of raw input to a WAV file once armed.
// Arm may be called from any goroutine; Capture belongs to the control loop.
type Recorder struct {
	dir   string
	rate  int
	total int
	now   func() time.Time

	mu     sync.Mutex
	active bool
	path   string
	buf    []float64
}

// NewRecorder creates a recorder writing seconds of audio at sampleRate into dir.
func NewRecorder(dir string, sampleRate int, seconds float64) (*Recorder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %d", sampleRate)
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("record duration must be > 0: %g", seconds)
	}
	total := int(seconds * float64(sampleRate))
	return &Recorder{
		dir:   dir,
		rate:  sampleRate,
		total: total,
		now:   time.Now,
	}, nil
}

// Arm starts a new capture and returns the file it will be written to.
func (r *Recorder) Arm() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return "", ErrRecording
	}
	r.active = true
	r.path = filepath.Join(r.dir, fmt.Sprintf("recording_%d.wav", r.now().UnixMilli()))
	if cap(r.buf) < r.total {
		r.buf = make([]float64, 0, r.total)
	}
	r.buf = r.buf[:0]
	return r.path, nil
}

// Active reports whether a capture is running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Progress returns the captured fraction of the current recording.
func (r *Recorder) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.total == 0 {
		return 0
	}
	return float64(len(r.buf)) / float64(r.total)
}

// Capture appends block to an armed recording. When the recording is
// complete it is written to disk and done is true.
func (r *Recorder) Capture(block []float64) (path string, done bool, err error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return "", false, nil
	}
	need := r.total - len(r.buf)
	if need > len(block) {
		need = len(block)
	}
	r.buf = append(r.buf, block[:need]...)
	if len(r.buf) < r.total {
		r.mu.Unlock()
		return "", false, nil
	}
	path = r.path
	data := r.buf
	r.buf = nil
	r.active = false
	r.mu.Unlock()

	if err := wavio.WriteMono(path, data, r.rate, RecordBitDepth); err != nil {
		return path, true, fmt.Errorf("write recording: %w", err)
	}
	return path, true, nil
}
