package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/flute"
	"github.com/rouderaa/esp32BLEMidiFlute/note"
)

// File is the JSON schema for pipeline presets. Absent fields keep their
// defaults.
type File struct {
	SampleRate  *int     `json:"sample_rate,omitempty"`
	BlockSize   *int     `json:"block_size,omitempty"`
	MinHz       *float64 `json:"min_hz,omitempty"`
	MaxHz       *float64 `json:"max_hz,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
	HPFAlpha    *float64 `json:"hpf_alpha,omitempty"`
	ReferenceHz *float64 `json:"reference_hz,omitempty"`

	Channel  *int    `json:"channel,omitempty"`
	Velocity *int    `json:"velocity,omitempty"`
	MinNote  *string `json:"min_note,omitempty"`
	MaxNote  *string `json:"max_note,omitempty"`

	VolumeScale *float64 `json:"volume_scale,omitempty"`

	HumReject    *bool    `json:"hum_reject,omitempty"`
	MainsHz      *float64 `json:"mains_hz,omitempty"`
	HumHarmonics *int     `json:"hum_harmonics,omitempty"`
	HumQ         *float64 `json:"hum_q,omitempty"`

	Program        *string `json:"program,omitempty"`
	Greeting       *string `json:"greeting,omitempty"`
	GreetingHoldMS *int    `json:"greeting_hold_ms,omitempty"`

	RecordSeconds *float64 `json:"record_seconds,omitempty"`
	RecordDir     string   `json:"record_dir,omitempty"`

	BackoffMS *int `json:"backoff_ms,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
// A relative record_dir is resolved against the preset's directory.
func LoadJSON(path string) (*flute.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := flute.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}

	if f.RecordDir != "" && !filepath.IsAbs(p.RecordDir) {
		base := filepath.Dir(path)
		p.RecordDir = filepath.Clean(filepath.Join(base, p.RecordDir))
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
// Field ranges are checked here only where the JSON type is wider than the
// Params type; everything else is left to Params.Validate.
func ApplyFile(dst *flute.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	setInt(&dst.SampleRate, f.SampleRate)
	setInt(&dst.BlockSize, f.BlockSize)
	setFloat(&dst.Band.MinHz, f.MinHz)
	setFloat(&dst.Band.MaxHz, f.MaxHz)
	setFloat(&dst.Threshold, f.Threshold)
	setFloat(&dst.HPFAlpha, f.HPFAlpha)
	setFloat(&dst.ReferenceHz, f.ReferenceHz)

	if f.Channel != nil {
		if *f.Channel < 0 || *f.Channel > 15 {
			return fmt.Errorf("channel must be in 0..15")
		}
		dst.Channel = uint8(*f.Channel)
	}
	if f.Velocity != nil {
		if *f.Velocity < 1 || *f.Velocity > 127 {
			return fmt.Errorf("velocity must be in 1..127")
		}
		dst.Velocity = uint8(*f.Velocity)
	}
	if f.MinNote != nil {
		n, err := note.Parse(*f.MinNote)
		if err != nil {
			return fmt.Errorf("min_note: %w", err)
		}
		dst.MinNote = n
	}
	if f.MaxNote != nil {
		n, err := note.Parse(*f.MaxNote)
		if err != nil {
			return fmt.Errorf("max_note: %w", err)
		}
		dst.MaxNote = n
	}

	setFloat(&dst.VolumeScale, f.VolumeScale)
	if f.HumReject != nil {
		dst.HumReject = *f.HumReject
	}
	setFloat(&dst.MainsHz, f.MainsHz)
	setInt(&dst.HumHarmonics, f.HumHarmonics)
	setFloat(&dst.HumQ, f.HumQ)

	if f.Program != nil {
		dst.Program = strings.TrimSpace(*f.Program)
	}
	if f.Greeting != nil {
		dst.Greeting = strings.TrimSpace(*f.Greeting)
	}
	if f.GreetingHoldMS != nil {
		dst.GreetingHold = time.Duration(*f.GreetingHoldMS) * time.Millisecond
	}
	setFloat(&dst.RecordSeconds, f.RecordSeconds)
	if f.RecordDir != "" {
		dst.RecordDir = strings.TrimSpace(f.RecordDir)
	}
	if f.BackoffMS != nil {
		dst.Backoff = time.Duration(*f.BackoffMS) * time.Millisecond
	}
	return nil
}

// FromParams builds a fully populated preset from p.
func FromParams(p *flute.Params) *File {
	ch, vel := int(p.Channel), int(p.Velocity)
	minNote, maxNote := note.Name(p.MinNote), note.Name(p.MaxNote)
	hold := int(p.GreetingHold / time.Millisecond)
	backoff := int(p.Backoff / time.Millisecond)
	return &File{
		SampleRate:     &p.SampleRate,
		BlockSize:      &p.BlockSize,
		MinHz:          &p.Band.MinHz,
		MaxHz:          &p.Band.MaxHz,
		Threshold:      &p.Threshold,
		HPFAlpha:       &p.HPFAlpha,
		ReferenceHz:    &p.ReferenceHz,
		Channel:        &ch,
		Velocity:       &vel,
		MinNote:        &minNote,
		MaxNote:        &maxNote,
		VolumeScale:    &p.VolumeScale,
		HumReject:      &p.HumReject,
		MainsHz:        &p.MainsHz,
		HumHarmonics:   &p.HumHarmonics,
		HumQ:           &p.HumQ,
		Program:        &p.Program,
		Greeting:       &p.Greeting,
		GreetingHoldMS: &hold,
		RecordSeconds:  &p.RecordSeconds,
		RecordDir:      p.RecordDir,
		BackoffMS:      &backoff,
	}
}

// WriteJSON stores p as an indented preset file.
func WriteJSON(path string, p *flute.Params) error {
	b, err := json.MarshalIndent(FromParams(p), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
