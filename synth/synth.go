// Package synth renders labeled flute-like test melodies.
package synth

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/rouderaa/esp32BLEMidiFlute/note"
)

// Config controls tone generation.
type Config struct {
	SampleRate  int
	ReferenceHz float64
	Seed        int64

	Harmonics  int
	Brightness float64 // partial k has amplitude 1/k^(2*Brightness)

	AttackS  float64
	ReleaseS float64

	VibratoHz    float64
	VibratoCents float64

	BreathLevel float64 // pink noise level relative to the tone

	HumHz    float64 // 0 disables mains hum
	HumLevel float64

	NormalizePeak float64
}

// Rest marks a silent entry in a melody.
const Rest = note.InvalidMIDI

// Step is one melody entry.
type Step struct {
	MIDI      int     `json:"midi"`
	DurationS float64 `json:"duration_s"`
}

// Label is the ground truth for one melody step in samples.
type Label struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	MIDI  int    `json:"midi"`
	Name  string `json:"name"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    16000,
		ReferenceHz:   note.DefaultReferenceHz,
		Seed:          1,
		Harmonics:     4,
		Brightness:    1.0,
		AttackS:       0.03,
		ReleaseS:      0.05,
		VibratoHz:     5.0,
		VibratoCents:  12,
		BreathLevel:   0.03,
		HumHz:         0,
		HumLevel:      0.05,
		NormalizePeak: 0.5,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.ReferenceHz <= 0 {
		return fmt.Errorf("reference must be > 0")
	}
	if c.Harmonics < 1 {
		return fmt.Errorf("harmonics must be >= 1")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.AttackS < 0 || c.ReleaseS < 0 {
		return fmt.Errorf("envelope times must be >= 0")
	}
	if c.VibratoHz < 0 || c.VibratoCents < 0 {
		return fmt.Errorf("vibrato must be >= 0")
	}
	if c.BreathLevel < 0 || c.HumLevel < 0 || c.HumHz < 0 {
		return fmt.Errorf("noise and hum levels must be >= 0")
	}
	if c.NormalizePeak <= 0 || c.NormalizePeak >= 1 {
		return fmt.Errorf("normalize peak must be in (0,1)")
	}
	return nil
}

// Render synthesizes melody and returns the samples with one label per step.
func Render(cfg Config, melody []Step) ([]float64, []Label, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if len(melody) == 0 {
		return nil, nil, fmt.Errorf("empty melody")
	}

	sr := float64(cfg.SampleRate)
	labels := make([]Label, 0, len(melody))
	total := 0
	for i, st := range melody {
		if st.DurationS <= 0 {
			return nil, nil, fmt.Errorf("step %d: duration must be > 0", i)
		}
		if st.MIDI != Rest && (st.MIDI < 0 || st.MIDI > 127) {
			return nil, nil, fmt.Errorf("step %d: midi %d out of range", i, st.MIDI)
		}
		n := int(math.Round(st.DurationS * sr))
		labels = append(labels, Label{Start: total, End: total + n, MIDI: st.MIDI, Name: note.Name(st.MIDI)})
		total += n
	}

	out := make([]float64, total)
	gen := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(sr)},
		signal.WithSeed(cfg.Seed),
	)
	breath, err := gen.PinkNoise(1, total)
	if err != nil {
		return nil, nil, err
	}

	for _, l := range labels {
		if l.MIDI == Rest {
			continue
		}
		renderTone(out[l.Start:l.End], breath[l.Start:l.End], note.Frequency(l.MIDI, cfg.ReferenceHz), &cfg)
	}

	peak := maxAbs(out)
	if cfg.HumHz > 0 {
		// Hum level is relative to the tone peak so it survives normalization.
		level := cfg.HumLevel * math.Max(peak, 1e-3)
		hum, err := gen.Sine(cfg.HumHz, level, total)
		if err != nil {
			return nil, nil, err
		}
		for i := range out {
			out[i] += hum[i]
		}
	}

	out, err = signal.Normalize(out, cfg.NormalizePeak)
	if err != nil {
		return nil, nil, err
	}
	return out, labels, nil
}

func renderTone(dst, breath []float64, f0 float64, cfg *Config) {
	sr := float64(cfg.SampleRate)
	nyq := 0.45 * sr
	attack := int(cfg.AttackS * sr)
	release := int(cfg.ReleaseS * sr)
	if attack+release > len(dst) {
		attack = len(dst) / 2
		release = len(dst) - attack
	}

	phase := 0.0
	vib := 0.0
	for i := range dst {
		env := 1.0
		switch {
		case i < attack:
			env = float64(i) / float64(attack)
		case i >= len(dst)-release:
			env = float64(len(dst)-i) / float64(release)
		}

		cents := cfg.VibratoCents * math.Sin(vib)
		f := f0 * math.Exp2(cents/1200)
		var s float64
		for k := 1; k <= cfg.Harmonics; k++ {
			if float64(k)*f >= nyq {
				break
			}
			s += math.Sin(float64(k)*phase) / math.Pow(float64(k), 2*cfg.Brightness)
		}
		s += cfg.BreathLevel * breath[i]
		dst[i] = env * s

		phase += 2 * math.Pi * f / sr
		if phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}
		vib += 2 * math.Pi * cfg.VibratoHz / sr
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// ParseMelody reads a whitespace separated list of NOTE:SECONDS entries.
// A note of "-" or "r" is a rest. Notes are names ("C#5") or MIDI numbers.
func ParseMelody(s string) ([]Step, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty melody")
	}
	out := make([]Step, 0, len(fields))
	for _, f := range fields {
		name, dur, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("melody entry %q: want NOTE:SECONDS", f)
		}
		d, err := strconv.ParseFloat(dur, 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("melody entry %q: bad duration", f)
		}
		midi := Rest
		if name != "-" && !strings.EqualFold(name, "r") {
			if midi, err = note.Parse(name); err != nil {
				return nil, fmt.Errorf("melody entry %q: %w", f, err)
			}
		}
		out = append(out, Step{MIDI: midi, DurationS: d})
	}
	return out, nil
}

// FrameLabels returns the reference MIDI number of each complete block of
// blockSize samples, taken at the block center. Blocks outside every label
// are Rest.
func FrameLabels(labels []Label, total, blockSize int) []int {
	if blockSize <= 0 {
		return nil
	}
	frames := make([]int, total/blockSize)
	j := 0
	for i := range frames {
		c := i*blockSize + blockSize/2
		for j < len(labels) && labels[j].End <= c {
			j++
		}
		frames[i] = Rest
		if j < len(labels) && labels[j].Start <= c {
			frames[i] = labels[j].MIDI
		}
	}
	return frames
}

// LabelFile is the JSON sidecar written next to rendered audio.
type LabelFile struct {
	SampleRate int     `json:"sample_rate"`
	Samples    int     `json:"samples"`
	Labels     []Label `json:"labels"`
}

func WriteLabels(path string, lf LabelFile) error {
	b, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func ReadLabels(path string) (LabelFile, error) {
	var lf LabelFile
	b, err := os.ReadFile(path)
	if err != nil {
		return lf, err
	}
	if err := json.Unmarshal(b, &lf); err != nil {
		return lf, fmt.Errorf("parse %s: %w", path, err)
	}
	if lf.SampleRate <= 0 {
		return lf, fmt.Errorf("%s: missing sample_rate", path)
	}
	return lf, nil
}
