package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rouderaa/esp32BLEMidiFlute/analysis"
	"github.com/rouderaa/esp32BLEMidiFlute/flute"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/wavio"
	"github.com/rouderaa/esp32BLEMidiFlute/synth"
)

var errEmptyCorpus = errors.New("empty corpus")

// clip is one labeled recording resampled to the pipeline rate.
type clip struct {
	Path      string
	Samples   []float64
	Reference []int
}

// labelPath returns the sidecar written by flute-synth for a WAV path.
func labelPath(wavPath string) string {
	return strings.TrimSuffix(wavPath, ".wav") + ".json"
}

func loadCorpus(paths []string, sampleRate, blockSize int) ([]clip, error) {
	if len(paths) == 0 {
		return nil, errEmptyCorpus
	}
	clips := make([]clip, 0, len(paths))
	for _, p := range paths {
		samples, sr, err := wavio.ReadMono(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		lf, err := synth.ReadLabels(labelPath(p))
		if err != nil {
			return nil, err
		}
		if lf.SampleRate != sr {
			return nil, fmt.Errorf("%s: labels at %d Hz, audio at %d Hz", p, lf.SampleRate, sr)
		}
		samples, err = wavio.Resample(samples, sr, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		labels := make([]synth.Label, len(lf.Labels))
		for i, l := range lf.Labels {
			l.Start = rescale(l.Start, sr, sampleRate)
			l.End = rescale(l.End, sr, sampleRate)
			labels[i] = l
		}
		clips = append(clips, clip{
			Path:      p,
			Samples:   samples,
			Reference: synth.FrameLabels(labels, len(samples), blockSize),
		})
	}
	return clips, nil
}

func rescale(pos, from, to int) int {
	if from == to {
		return pos
	}
	return int(int64(pos) * int64(to) / int64(from))
}

// evaluate runs detection over every clip and compares the joined note
// sequences. Clips are separated by rests so the lag search cannot pair
// frames across clip boundaries.
func evaluate(p *flute.Params, clips []clip) (analysis.Metrics, error) {
	if err := p.Validate(); err != nil {
		return analysis.Metrics{}, err
	}
	var detected, reference []int
	for _, c := range clips {
		frames, err := flute.Detect(p, c.Samples)
		if err != nil {
			return analysis.Metrics{}, fmt.Errorf("%s: %w", c.Path, err)
		}
		det := flute.PlayedNotes(frames)
		n := maxInt(len(det), len(c.Reference)) + analysis.MaxLagFrames
		detected = appendPadded(detected, det, n)
		reference = appendPadded(reference, c.Reference, n)
	}
	return analysis.Compare(detected, reference), nil
}

func appendPadded(dst, src []int, n int) []int {
	dst = append(dst, src...)
	for i := len(src); i < n; i++ {
		dst = append(dst, analysis.Rest)
	}
	return dst
}
