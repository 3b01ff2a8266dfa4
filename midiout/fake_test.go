package midiout

import (
	"errors"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"
)

type fakeOut struct {
	name    string
	open    bool
	opens   int
	closes  int
	sent    []midi.Message
	sendErr error
	openErr error
}

func (f *fakeOut) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.opens++
	return nil
}

func (f *fakeOut) Close() error {
	f.open = false
	f.closes++
	return nil
}

func (f *fakeOut) IsOpen() bool            { return f.open }
func (f *fakeOut) Number() int             { return 0 }
func (f *fakeOut) String() string          { return f.name }
func (f *fakeOut) Underlying() interface{} { return nil }

func (f *fakeOut) Send(data []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, midi.Message(append([]byte(nil), data...)))
	return nil
}

type fakeCloser struct {
	err    error
	closed bool
}

func (c *fakeCloser) Close() error {
	c.closed = true
	return c.err
}

type fakePort struct {
	written  []byte
	closed   bool
	short    bool
	writeErr error
}

func (p *fakePort) SetMode(*serial.Mode) error { return nil }
func (p *fakePort) Read([]byte) (int, error)   { return 0, errors.New("not readable") }

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.short {
		return len(b) - 1, nil
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Drain() error                       { return nil }
func (p *fakePort) ResetInputBuffer() error            { return nil }
func (p *fakePort) ResetOutputBuffer() error           { return nil }
func (p *fakePort) SetDTR(bool) error                  { return nil }
func (p *fakePort) SetRTS(bool) error                  { return nil }
func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }
func (p *fakePort) Break(time.Duration) error          { return nil }

func (p *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}
