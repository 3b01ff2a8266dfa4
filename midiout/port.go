package midiout

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// VirtualPortName names the port created when no output is requested.
const VirtualPortName = "esp32 flute"

// OpenPort finds the first system output whose name contains name, case
// insensitively. An empty name creates a virtual output that synthesizers
// can connect to. The driver must be closed after the port; pass it to
// Open with WithCloser.
func OpenPort(name string) (drivers.Out, *rtmididrv.Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, nil, fmt.Errorf("rtmididrv: %w", err)
	}
	if name == "" {
		out, err := drv.OpenVirtualOut(VirtualPortName)
		if err != nil {
			drv.Close()
			return nil, nil, fmt.Errorf("virtual out: %w", err)
		}
		return out, drv, nil
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, nil, fmt.Errorf("list outputs: %w", err)
	}
	if out := matchPort(outs, name); out != nil {
		return out, drv, nil
	}
	drv.Close()
	return nil, nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

// ListPorts returns the names of the system MIDI outputs.
func ListPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()
	outs, err := drv.Outs()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	return names, nil
}

func matchPort(outs []drivers.Out, name string) drivers.Out {
	want := strings.ToLower(name)
	for _, o := range outs {
		if strings.Contains(strings.ToLower(o.String()), want) {
			return o
		}
	}
	return nil
}
