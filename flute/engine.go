// Package flute wires the pitch pipeline into a control loop: acquire a
// block, filter it, measure loudness, find the dominant pitch, quantize it
// and turn note changes into MIDI events.
package flute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/audio"
	"github.com/rouderaa/esp32BLEMidiFlute/dsp"
	"github.com/rouderaa/esp32BLEMidiFlute/midiout"
	"github.com/rouderaa/esp32BLEMidiFlute/note"
	"github.com/rouderaa/esp32BLEMidiFlute/pitch"
	"github.com/rouderaa/esp32BLEMidiFlute/tracker"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrAcquire marks a failed block acquisition. The cycle produced no
	// events and may be retried.
	ErrAcquire = errors.New("acquisition fault")
	// ErrSink marks a failed delivery to the MIDI sink.
	ErrSink = errors.New("midi sink")
)

// Frame summarizes one cycle.
type Frame struct {
	Seq      uint64
	Peak     float64 // max |x| before filtering
	RMS      float64
	Volume   int // 0..100
	Estimate pitch.Estimate
	Note     note.Note
	NoteOK   bool
	Muted    bool
	Events   []tracker.Event
	State    tracker.State
	Playing  int // sounding MIDI note, note.InvalidMIDI when silent

	Recording bool
	Recorded  string // path of a recording completed this cycle

	Fault bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithGate installs the mute control.
func WithGate(g Gate) Option {
	return func(e *Engine) {
		e.gate = g
	}
}

// WithObserver is called by Run after every cycle, on the loop goroutine.
func WithObserver(fn func(Frame)) Option {
	return func(e *Engine) {
		e.observe = fn
	}
}

// WithRecorder captures raw input blocks whenever the recorder is armed.
func WithRecorder(r *audio.Recorder) Option {
	return func(e *Engine) {
		e.rec = r
	}
}

// Engine runs the pipeline. Step and Run must not be called concurrently.
type Engine struct {
	params *Params
	src    audio.Source
	sink   midiout.Sink
	log    *zap.Logger

	gate    Gate
	observe func(Frame)
	rec     *audio.Recorder

	hpf      *dsp.HighPass
	hum      *dsp.HumFilter
	analyzer *pitch.Analyzer
	peaks    *pitch.PeakExtractor
	quant    *note.Quantizer
	track    *tracker.Tracker

	block []float64
	seq   uint64
	wait  func(context.Context, time.Duration) bool
}

// New validates p and builds the pipeline stages.
func New(p *Params, src audio.Source, sink midiout.Sink, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil || sink == nil {
		return nil, errors.New("flute: source and sink are required")
	}
	if sr := src.SampleRate(); sr != p.SampleRate {
		return nil, fmt.Errorf("%w: source rate %d, params rate %d", ErrInvalidParams, sr, p.SampleRate)
	}

	e := &Engine{
		params: p,
		src:    src,
		sink:   sink,
		log:    zap.NewNop(),
		block:  make([]float64, p.BlockSize),
		wait:   sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.hpf, err = dsp.NewHighPass(p.HPFAlpha); err != nil {
		return nil, err
	}
	if p.HumReject {
		if p.MainsHz <= 0 {
			return nil, fmt.Errorf("%w: hum rejection needs a resolved mains frequency", ErrInvalidParams)
		}
		e.hum, err = dsp.NewHumFilter(p.MainsHz, p.HumHarmonics, p.HumQ, float64(p.SampleRate))
		if err != nil {
			return nil, err
		}
	}
	if e.analyzer, err = pitch.NewAnalyzer(p.BlockSize); err != nil {
		return nil, err
	}
	if e.peaks, err = pitch.NewPeakExtractor(p.Band, p.Threshold, p.SampleRate, p.BlockSize); err != nil {
		return nil, err
	}
	if e.quant, err = note.NewQuantizer(p.ReferenceHz, p.Band); err != nil {
		return nil, err
	}
	e.track = tracker.New(
		tracker.WithChannel(p.Channel),
		tracker.WithVelocity(p.Velocity),
		tracker.WithRange(p.MinNote, p.MaxNote),
	)

	lo, hi := e.peaks.Bins()
	e.log.Debug("pipeline ready",
		zap.Int("sample_rate", p.SampleRate),
		zap.Int("block", p.BlockSize),
		zap.Int("bin_lo", lo),
		zap.Int("bin_hi", hi),
		zap.Float64("threshold", p.Threshold),
		zap.Bool("hum_reject", e.hum != nil),
	)
	return e, nil
}

// Params returns the settings the engine was built with.
func (e *Engine) Params() *Params {
	return e.params
}

// Step runs one cycle. An acquisition fault returns a Frame with Fault set
// and an error wrapping ErrAcquire; io.EOF and audio.ErrClosed are returned
// unchanged when the source is exhausted or closed. Sink failures are wrapped in ErrSink after the
// tracker has advanced.
func (e *Engine) Step() (Frame, error) {
	e.seq++
	f := Frame{Seq: e.seq, Note: note.Note{MIDI: note.InvalidMIDI}}

	if err := e.src.Acquire(e.block); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, audio.ErrClosed) {
			return f, err
		}
		f.Fault = true
		f.State = e.track.State()
		f.Playing = e.track.Current()
		return f, fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	var recErr error
	if e.rec != nil {
		path, done, err := e.rec.Capture(e.block)
		if done {
			f.Recorded = path
		}
		recErr = err
		f.Recording = e.rec.Active()
	}

	f.Peak = e.hpf.Process(e.block)
	if e.hum != nil {
		e.hum.ProcessBlock(e.block)
	}
	f.RMS = dsp.RMS(e.block)
	f.Volume = dsp.VolumePercent(f.RMS, e.params.VolumeScale)

	f.Estimate = e.peaks.Extract(e.analyzer.Analyze(e.block))
	if f.Estimate.OK {
		f.Note, f.NoteOK = e.quant.Quantize(f.Estimate.Hz)
	}

	f.Muted = e.gate != nil && e.gate.Muted()
	events := e.track.Update(f.Note, f.NoteOK, f.Muted)
	f.State = e.track.State()
	f.Playing = e.track.Current()
	if len(events) > 0 {
		f.Events = append([]tracker.Event(nil), events...)
	}
	return f, multierr.Append(recErr, e.emit(events))
}

// Release silences a sounding note.
func (e *Engine) Release() error {
	return e.emit(e.track.Release())
}

// Run steps until ctx is cancelled or the source reports io.EOF or
// audio.ErrClosed, then
// releases the sounding note. Acquisition faults are logged and retried
// after Params.Backoff. A clean stop returns nil.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, e.Release())
	}()

	for ctx.Err() == nil {
		f, err := e.Step()
		switch {
		case errors.Is(err, io.EOF):
			e.log.Info("source exhausted", zap.Uint64("cycles", f.Seq-1))
			return nil
		case errors.Is(err, audio.ErrClosed):
			e.log.Info("source closed", zap.Uint64("cycles", f.Seq-1))
			return nil
		case errors.Is(err, ErrAcquire):
			e.log.Warn("block acquisition failed", zap.Error(err))
			e.notify(f)
			if !e.wait(ctx, e.params.Backoff) {
				return nil
			}
			continue
		case err != nil:
			e.log.Warn("cycle error", zap.Error(err))
		}

		for _, ev := range f.Events {
			e.log.Debug("note event",
				zap.Stringer("kind", ev.Kind),
				zap.String("note", note.Name(ev.MIDI)),
				zap.Float64("hz", f.Estimate.Hz),
			)
		}
		if f.Recorded != "" {
			e.log.Info("recording saved", zap.String("path", f.Recorded))
		}
		e.notify(f)
	}
	return nil
}

func (e *Engine) notify(f Frame) {
	if e.observe != nil {
		e.observe(f)
	}
}

func (e *Engine) emit(events []tracker.Event) error {
	var err error
	for _, ev := range events {
		key := uint8(ev.MIDI)
		var sendErr error
		switch ev.Kind {
		case tracker.On:
			sendErr = e.sink.NoteOn(ev.Channel, key, ev.Velocity)
		case tracker.Off:
			sendErr = e.sink.NoteOff(ev.Channel, key, ev.Velocity)
		}
		if sendErr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %s: %w", ErrSink, ev, sendErr))
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
