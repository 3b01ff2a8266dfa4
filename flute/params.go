package flute

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/note"
	"github.com/rouderaa/esp32BLEMidiFlute/pitch"
)

// ErrInvalidParams wraps every validation failure.
var ErrInvalidParams = errors.New("invalid params")

// Params holds all pipeline settings. Treat it as read-only once passed
// to New.
type Params struct {
	SampleRate int
	BlockSize  int

	Band        pitch.Band
	Threshold   float64 // minimum peak magnitude, unnormalized FFT scale
	HPFAlpha    float64
	ReferenceHz float64 // A4

	Channel  uint8
	Velocity uint8
	MinNote  int // lowest MIDI note that sounds, 0 admits all
	MaxNote  int

	VolumeScale float64 // RMS to percent factor for the level meter

	// Mains hum rejection. MainsHz == 0 means "detect from the timezone";
	// the caller resolves it before New.
	HumReject    bool
	MainsHz      float64
	HumHarmonics int
	HumQ         float64

	Program      string // General MIDI program name or number
	Greeting     string // note played once on connect, empty for none
	GreetingHold time.Duration

	RecordSeconds float64
	RecordDir     string

	Backoff time.Duration // pause after an acquisition fault
}

// NewDefaultParams returns the settings of the reference hardware: a 16 kHz
// I2S microphone and 512-sample blocks. Every note the band can produce
// sounds; set MinNote to 72 for the C5 floor of the original build.
func NewDefaultParams() *Params {
	return &Params{
		SampleRate:    16000,
		BlockSize:     512,
		Band:          pitch.DefaultBand(),
		Threshold:     0.2,
		HPFAlpha:      0.95,
		ReferenceHz:   note.DefaultReferenceHz,
		Channel:       0,
		Velocity:      127,
		MinNote:       0,
		MaxNote:       127,
		VolumeScale:   150000,
		HumReject:     false,
		MainsHz:       0,
		HumHarmonics:  4,
		HumQ:          30,
		Program:       "RockOrgan",
		Greeting:      "A4",
		GreetingHold:  time.Second,
		RecordSeconds: 2,
		RecordDir:     ".",
		Backoff:       200 * time.Millisecond,
	}
}

// Validate checks every field. It is called by New.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil params", ErrInvalidParams)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be > 0", ErrInvalidParams)
	}
	if !pitch.IsPowerOfTwo(p.BlockSize) {
		return fmt.Errorf("%w: block size %d: %w", ErrInvalidParams, p.BlockSize, pitch.ErrBlockLength)
	}
	if err := p.Band.Validate(p.SampleRate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if p.Threshold < 0 || math.IsNaN(p.Threshold) {
		return fmt.Errorf("%w: threshold must be >= 0", ErrInvalidParams)
	}
	if !(p.HPFAlpha > 0 && p.HPFAlpha < 1) {
		return fmt.Errorf("%w: hpf alpha must be in (0,1)", ErrInvalidParams)
	}
	if !(p.ReferenceHz > 0) {
		return fmt.Errorf("%w: reference frequency must be > 0", ErrInvalidParams)
	}
	if p.Channel > 15 {
		return fmt.Errorf("%w: channel %d out of range 0-15", ErrInvalidParams, p.Channel)
	}
	if p.Velocity == 0 || p.Velocity > 127 {
		return fmt.Errorf("%w: velocity %d out of range 1-127", ErrInvalidParams, p.Velocity)
	}
	if p.MinNote < 0 || p.MaxNote > 127 || p.MinNote > p.MaxNote {
		return fmt.Errorf("%w: note range %d-%d", ErrInvalidParams, p.MinNote, p.MaxNote)
	}
	if !(p.VolumeScale > 0) {
		return fmt.Errorf("%w: volume scale must be > 0", ErrInvalidParams)
	}
	if p.HumReject {
		if p.MainsHz < 0 {
			return fmt.Errorf("%w: mains frequency must be >= 0", ErrInvalidParams)
		}
		if p.HumHarmonics < 1 {
			return fmt.Errorf("%w: hum harmonics must be >= 1", ErrInvalidParams)
		}
		if !(p.HumQ > 0) {
			return fmt.Errorf("%w: hum q must be > 0", ErrInvalidParams)
		}
	}
	if p.Greeting != "" {
		if _, err := note.Parse(p.Greeting); err != nil {
			return fmt.Errorf("%w: greeting: %w", ErrInvalidParams, err)
		}
	}
	if p.GreetingHold < 0 {
		return fmt.Errorf("%w: greeting hold must be >= 0", ErrInvalidParams)
	}
	if !(p.RecordSeconds > 0) {
		return fmt.Errorf("%w: record seconds must be > 0", ErrInvalidParams)
	}
	if p.Backoff < 0 {
		return fmt.Errorf("%w: backoff must be >= 0", ErrInvalidParams)
	}
	return nil
}

// Clone returns a copy that can be modified independently.
func (p *Params) Clone() *Params {
	c := *p
	return &c
}
