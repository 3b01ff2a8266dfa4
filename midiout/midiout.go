// Package midiout delivers note events to a MIDI sound generator.
//
// Output speaks through any gomidi drivers.Out: a system port opened with
// OpenPort, a raw serial line opened with OpenSerial, or a test double.
package midiout

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/gm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sink receives note events from the control loop.
type Sink interface {
	NoteOn(channel, key, velocity uint8) error
	NoteOff(channel, key, velocity uint8) error
}

// DefaultProgram is selected on open unless WithProgram overrides it.
const DefaultProgram = gm.Instr_RockOrgan

// Option configures an Output.
type Option func(*Output)

// WithProgram selects the General MIDI program sent on open.
func WithProgram(p gm.Instr) Option {
	return func(o *Output) {
		o.program = p
	}
}

// WithoutProgram suppresses the program change on open.
func WithoutProgram() Option {
	return func(o *Output) {
		o.sendProgram = false
	}
}

// WithChannel sets the channel used for the program change and greeting.
func WithChannel(ch uint8) Option {
	return func(o *Output) {
		o.channel = ch & 0x0f
	}
}

// WithGreeting plays key once for hold right after open.
func WithGreeting(key uint8, hold time.Duration) Option {
	return func(o *Output) {
		o.greetKey = key & 0x7f
		o.greetHold = hold
		o.greet = true
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Output) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCloser registers a resource released by Close after the port.
func WithCloser(c io.Closer) Option {
	return func(o *Output) {
		o.closers = append(o.closers, c)
	}
}

// Output is a Sink backed by a gomidi output port.
type Output struct {
	out     drivers.Out
	send    func(midi.Message) error
	log     *zap.Logger
	closers []io.Closer
	sleep   func(time.Duration)

	channel     uint8
	program     gm.Instr
	sendProgram bool
	greet       bool
	greetKey    uint8
	greetHold   time.Duration

	mu     sync.Mutex
	closed bool
}

// Open prepares out for sending, selects the program and plays the
// greeting if one is configured.
func Open(out drivers.Out, opts ...Option) (*Output, error) {
	o := &Output{
		out:         out,
		log:         zap.NewNop(),
		sleep:       time.Sleep,
		program:     DefaultProgram,
		sendProgram: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.start(); err != nil {
		return nil, multierr.Append(err, o.closeAll())
	}
	return o, nil
}

func (o *Output) start() error {
	send, err := midi.SendTo(o.out)
	if err != nil {
		return fmt.Errorf("open midi out %s: %w", o.out, err)
	}
	o.send = send
	o.log.Info("midi output open", zap.String("port", o.out.String()))

	if o.sendProgram {
		if err := o.send(midi.ProgramChange(o.channel, uint8(o.program))); err != nil {
			return fmt.Errorf("program change: %w", err)
		}
		o.log.Debug("program selected", zap.Uint8("program", uint8(o.program)))
	}
	if o.greet {
		if err := o.send(midi.NoteOn(o.channel, o.greetKey, 127)); err != nil {
			return fmt.Errorf("greeting: %w", err)
		}
		o.sleep(o.greetHold)
		if err := o.send(midi.NoteOffVelocity(o.channel, o.greetKey, 127)); err != nil {
			return fmt.Errorf("greeting: %w", err)
		}
	}
	return nil
}

// NoteOn sends a note-on message.
func (o *Output) NoteOn(channel, key, velocity uint8) error {
	return o.write(midi.NoteOn(channel, key, velocity))
}

// NoteOff sends a note-off message with release velocity.
func (o *Output) NoteOff(channel, key, velocity uint8) error {
	return o.write(midi.NoteOffVelocity(channel, key, velocity))
}

func (o *Output) write(msg midi.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if err := o.send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg, err)
	}
	return nil
}

// Port returns the name of the underlying output.
func (o *Output) Port() string {
	return o.out.String()
}

// Close closes the port and every registered closer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	return o.closeAll()
}

func (o *Output) closeAll() error {
	var err error
	if o.out.IsOpen() {
		err = multierr.Append(err, o.out.Close())
	}
	for _, c := range o.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
