// Package mic captures blocks from a sound card input through PortAudio.
package mic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rouderaa/esp32BLEMidiFlute/audio"
	"go.uber.org/multierr"
)

// Mic is a blocking mono input stream. It implements audio.Source.
type Mic struct {
	stream *portaudio.Stream
	read   func() error // fills raw
	raw    []int32
	rate   int

	mu     sync.Mutex
	closed bool
}

// Open starts capturing blockSize-frame blocks at sampleRate from the input
// device whose name contains device, or from the default input when device
// is empty.
func Open(device string, sampleRate int, blockSize int) (*Mic, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	m := &Mic{
		raw:  make([]int32, blockSize),
		rate: sampleRate,
	}

	var err error
	if device == "" {
		m.stream, err = portaudio.OpenDefaultStream(1, 0, float64(sampleRate), blockSize, m.raw)
	} else {
		var dev *portaudio.DeviceInfo
		dev, err = findInput(device)
		if err == nil {
			p := portaudio.HighLatencyParameters(dev, nil)
			p.Input.Channels = 1
			p.SampleRate = float64(sampleRate)
			p.FramesPerBuffer = blockSize
			m.stream, err = portaudio.OpenStream(p, m.raw)
		}
	}
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := m.stream.Start(); err != nil {
		m.stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	m.read = m.stream.Read
	return m, nil
}

// Inputs lists the names of capture-capable devices.
func Inputs() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

func findInput(name string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	for _, d := range devs {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}

// Acquire blocks until the next block has been captured.
func (m *Mic) Acquire(block []float64) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return audio.ErrClosed
	}
	if len(block) != len(m.raw) {
		return fmt.Errorf("block length %d, stream delivers %d", len(block), len(m.raw))
	}
	if err := m.read(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	audio.ConvertI2S(m.raw, block)
	return nil
}

// SampleRate returns the capture rate.
func (m *Mic) SampleRate() int {
	return m.rate
}

// Close stops the stream and releases PortAudio.
func (m *Mic) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return multierr.Combine(m.stream.Stop(), m.stream.Close(), portaudio.Terminate())
}
