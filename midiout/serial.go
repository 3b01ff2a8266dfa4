package midiout

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaud is the classic MIDI DIN rate. USB serial bridges usually
// accept any rate.
const DefaultBaud = 31250

// SerialOut writes raw MIDI bytes to a serial line. It implements
// drivers.Out so it can back an Output.
type SerialOut struct {
	device string
	baud   int
	open   func(string, *serial.Mode) (serial.Port, error)

	mu   sync.Mutex
	port serial.Port
}

// OpenSerial opens device at baud. A baud of zero selects DefaultBaud.
func OpenSerial(device string, baud int) (*SerialOut, error) {
	s := NewSerialOut(device, baud)
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSerialOut returns an unopened serial output.
func NewSerialOut(device string, baud int) *SerialOut {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &SerialOut{device: device, baud: baud, open: serial.Open}
}

// Open opens the serial device. Opening an open port is a no-op.
func (s *SerialOut) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	p, err := s.open(s.device, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("serial %s: %w", s.device, err)
	}
	s.port = p
	return nil
}

// Close closes the serial device.
func (s *SerialOut) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// IsOpen reports whether the device is open.
func (s *SerialOut) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Number is always 0; serial outputs are not enumerated.
func (s *SerialOut) Number() int { return 0 }

func (s *SerialOut) String() string {
	return fmt.Sprintf("serial:%s@%d", s.device, s.baud)
}

// Underlying returns the serial.Port, or nil when closed.
func (s *SerialOut) Underlying() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Send writes one encoded MIDI message.
func (s *SerialOut) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrClosed
	}
	n, err := s.port.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("serial %s: short write %d of %d", s.device, n, len(data))
	}
	return nil
}
