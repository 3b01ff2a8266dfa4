package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rouderaa/esp32BLEMidiFlute/audio"
	"github.com/rouderaa/esp32BLEMidiFlute/audio/mic"
	"github.com/rouderaa/esp32BLEMidiFlute/flute"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/cli"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/logging"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/mains"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/ui"
	"github.com/rouderaa/esp32BLEMidiFlute/midiout"
	"github.com/rouderaa/esp32BLEMidiFlute/note"
	"github.com/rouderaa/esp32BLEMidiFlute/preset"
	"go.uber.org/zap"
)

var version = "0.1.0"

const title = "flute"

// CLI defines the command line.
type CLI struct {
	Version bool `short:"v" help:"Show version information."`
	List    bool `help:"List audio inputs and MIDI outputs, then exit."`

	Preset string `short:"p" type:"existingfile" placeholder:"file" help:"JSON preset applied over the defaults."`
	WAV    string `name:"wav" type:"existingfile" placeholder:"file" help:"Play a WAV file instead of listening to the microphone."`
	Loop   bool   `help:"Loop the WAV file."`
	Device string `placeholder:"name" help:"Audio input device (name substring)."`

	Port   string `placeholder:"name" help:"MIDI output port (name substring). Empty opens a virtual port."`
	Serial string `placeholder:"device" help:"Send raw MIDI bytes to a serial device."`
	Baud   int    `default:"31250" help:"Serial baud rate."`
	DryRun bool   `help:"Log note events instead of sending MIDI."`

	Program string  `placeholder:"name" help:"General MIDI program name or number."`
	MinNote string  `placeholder:"note" help:"Lowest note that sounds, e.g. C5."`
	Hum     bool    `help:"Reject mains hum."`
	Mains   float64 `placeholder:"hz" help:"Mains frequency for hum rejection. 0 detects it from the timezone."`

	Record    bool   `help:"Record the first seconds of input to a WAV file."`
	RecordDir string `placeholder:"dir" help:"Directory for recordings."`

	NoTUI   bool   `name:"no-tui" help:"Disable the terminal panel and log to the console."`
	Debug   bool   `help:"Enable debug logging."`
	LogFile string `placeholder:"path" help:"Write JSON logs to a file."`
}

func main() {
	var c CLI
	kong.Parse(&c,
		kong.Name(title),
		kong.Description("Monophonic pitch to MIDI"),
		kong.UsageOnError(),
		kong.Help(cli.HelpPrinter(title, "Play a flute, hear an organ: monophonic pitch to MIDI")),
	)

	if c.Version {
		cli.PrintVersion(title, version)
		return
	}
	if c.List {
		if err := listDevices(); err != nil {
			cli.PrintError(err.Error())
			os.Exit(1)
		}
		return
	}

	if err := run(&c); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(c *CLI) error {
	p, err := loadParams(c)
	if err != nil {
		return err
	}

	log, flush, err := logging.New(logging.Options{
		Debug: c.Debug,
		File:  c.LogFile,
		Quiet: !c.NoTUI && c.LogFile == "",
	})
	if err != nil {
		return err
	}
	defer flush()

	if p.HumReject {
		hz, source := mains.Resolve(p.MainsHz)
		p.MainsHz = hz
		log.Info("hum rejection", zap.Float64("mains_hz", hz), zap.String("source", source))
	}

	src, closeSrc, err := openSource(c, p)
	if err != nil {
		return err
	}
	defer closeSrc()

	sink, portName, closeSink, err := openSink(c, p, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Warn("close midi output", zap.Error(err))
		}
	}()

	rec, err := audio.NewRecorder(p.RecordDir, p.SampleRate, p.RecordSeconds)
	if err != nil {
		return err
	}
	if c.Record {
		path, err := rec.Arm()
		if err != nil {
			return err
		}
		log.Info("recording armed", zap.String("path", path))
	}

	gate := &flute.Switch{}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []flute.Option{
		flute.WithLogger(log),
		flute.WithGate(gate),
		flute.WithRecorder(rec),
	}
	if c.NoTUI {
		eng, err := flute.New(p, src, sink, opts...)
		if err != nil {
			return err
		}
		log.Info("listening", zap.String("output", portName))
		return eng.Run(ctx)
	}
	return runTUI(ctx, p, src, sink, portName, controls{gate: gate, rec: rec}, opts)
}

func runTUI(ctx context.Context, p *flute.Params, src audio.Source, sink midiout.Sink, port string, ctl controls, opts []flute.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan flute.Frame, 64)
	opts = append(opts, flute.WithObserver(forwardFrames(ctx, frames)))
	eng, err := flute.New(p, src, sink, opts...)
	if err != nil {
		return err
	}

	prog := tea.NewProgram(ui.NewModel(title, port, ctl, frames), tea.WithAltScreen())
	runErr := make(chan error, 1)
	go func() {
		err := eng.Run(ctx)
		runErr <- err
		prog.Send(ui.DoneMsg{Err: err})
	}()

	_, uiErr := prog.Run()
	cancel()
	return errors.Join(uiErr, <-runErr)
}

// forwardFrames feeds the panel. Plain meter frames are dropped while the
// panel lags behind; frames carrying note events wait for room so the event
// history stays complete.
func forwardFrames(ctx context.Context, frames chan<- flute.Frame) func(flute.Frame) {
	return func(f flute.Frame) {
		if len(f.Events) == 0 {
			select {
			case frames <- f:
			default:
			}
			return
		}
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	}
}

type controls struct {
	gate *flute.Switch
	rec  *audio.Recorder
}

func (c controls) ToggleMute() bool        { return c.gate.Toggle() }
func (c controls) Record() (string, error) { return c.rec.Arm() }

func loadParams(c *CLI) (*flute.Params, error) {
	p := flute.NewDefaultParams()
	if c.Preset != "" {
		var err error
		if p, err = preset.LoadJSON(c.Preset); err != nil {
			return nil, err
		}
	}
	if c.Program != "" {
		p.Program = c.Program
	}
	if c.MinNote != "" {
		n, err := note.Parse(c.MinNote)
		if err != nil {
			return nil, fmt.Errorf("--min-note: %w", err)
		}
		p.MinNote = n
	}
	if c.Hum {
		p.HumReject = true
	}
	if c.Mains > 0 {
		p.MainsHz = c.Mains
	}
	if c.RecordDir != "" {
		p.RecordDir = c.RecordDir
	}
	return p, p.Validate()
}

func openSource(c *CLI, p *flute.Params) (audio.Source, func(), error) {
	if c.WAV != "" {
		opts := []audio.BufferOption{audio.WithRealtime()}
		if c.Loop {
			opts = append(opts, audio.WithLoop())
		}
		src, err := audio.OpenWAV(c.WAV, p.SampleRate, opts...)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
	m, err := mic.Open(c.Device, p.SampleRate, p.BlockSize)
	if err != nil {
		return nil, nil, err
	}
	return m, func() { _ = m.Close() }, nil
}

func openSink(c *CLI, p *flute.Params, log *zap.Logger) (midiout.Sink, string, func() error, error) {
	if c.DryRun {
		return midiout.NewLogSink(log), "dry run", func() error { return nil }, nil
	}

	program, err := midiout.ProgramByName(p.Program)
	if err != nil {
		return nil, "", nil, err
	}
	opts := []midiout.Option{
		midiout.WithLogger(log),
		midiout.WithProgram(program),
		midiout.WithChannel(p.Channel),
	}
	if p.Greeting != "" {
		key, err := note.Parse(p.Greeting)
		if err != nil {
			return nil, "", nil, err
		}
		opts = append(opts, midiout.WithGreeting(uint8(key), p.GreetingHold))
	}

	var out *midiout.Output
	if c.Serial != "" {
		s, err := midiout.OpenSerial(c.Serial, c.Baud)
		if err != nil {
			return nil, "", nil, err
		}
		out, err = midiout.Open(s, opts...)
		if err != nil {
			return nil, "", nil, err
		}
	} else {
		port, drv, err := midiout.OpenPort(c.Port)
		if err != nil {
			return nil, "", nil, err
		}
		out, err = midiout.Open(port, append(opts, midiout.WithCloser(drv))...)
		if err != nil {
			return nil, "", nil, err
		}
	}
	return out, out.Port(), out.Close, nil
}

func listDevices() error {
	ins, err := mic.Inputs()
	if err != nil {
		return fmt.Errorf("audio inputs: %w", err)
	}
	cli.PrintField("inputs", len(ins))
	for _, n := range ins {
		fmt.Println("  " + n)
	}
	outs, err := midiout.ListPorts()
	if err != nil {
		return fmt.Errorf("midi outputs: %w", err)
	}
	cli.PrintField("outputs", len(outs))
	for _, n := range outs {
		fmt.Println("  " + n)
	}
	return nil
}
