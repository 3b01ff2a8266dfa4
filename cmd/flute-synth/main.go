package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rouderaa/esp32BLEMidiFlute/internal/wavio"
	"github.com/rouderaa/esp32BLEMidiFlute/synth"
)

func main() {
	cfg := synth.DefaultConfig()

	output := flag.String("output", "out/melody.wav", "Output WAV path")
	labelsPath := flag.String("labels", "", "Label JSON path (default: output with .json)")
	melody := flag.String("melody", "C5:0.5 D5:0.5 E5:0.5 -:0.25 G5:1", "Melody as NOTE:SECONDS, '-' for rest")
	bitDepth := flag.Int("bits", 16, "Output bit depth (16 or 24)")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.IntVar(&cfg.Harmonics, "harmonics", cfg.Harmonics, "Number of partials")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Partial rolloff control (>0)")
	flag.Float64Var(&cfg.AttackS, "attack", cfg.AttackS, "Attack time (s)")
	flag.Float64Var(&cfg.ReleaseS, "release", cfg.ReleaseS, "Release time (s)")
	flag.Float64Var(&cfg.VibratoHz, "vibrato-hz", cfg.VibratoHz, "Vibrato rate")
	flag.Float64Var(&cfg.VibratoCents, "vibrato-cents", cfg.VibratoCents, "Vibrato depth in cents")
	flag.Float64Var(&cfg.BreathLevel, "breath", cfg.BreathLevel, "Breath noise level")
	flag.Float64Var(&cfg.HumHz, "hum-hz", cfg.HumHz, "Mains hum frequency, 0 for none")
	flag.Float64Var(&cfg.HumLevel, "hum-level", cfg.HumLevel, "Mains hum level")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	steps, err := synth.ParseMelody(*melody)
	if err != nil {
		fmt.Fprintf(os.Stderr, "melody: %v\n", err)
		os.Exit(1)
	}

	samples, labels, err := synth.Render(cfg, steps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flute-synth error: %v\n", err)
		os.Exit(1)
	}

	if err := wavio.WriteMono(*output, samples, cfg.SampleRate, *bitDepth); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	lp := *labelsPath
	if lp == "" {
		lp = strings.TrimSuffix(*output, ".wav") + ".json"
	}
	lf := synth.LabelFile{SampleRate: cfg.SampleRate, Samples: len(samples), Labels: labels}
	if err := synth.WriteLabels(lp, lf); err != nil {
		fmt.Fprintf(os.Stderr, "label write error: %v\n", err)
		os.Exit(1)
	}

	peak, rms := stats(samples)
	fmt.Printf("Wrote %s and %s\n", *output, lp)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Steps: %d\n",
		cfg.SampleRate, float64(len(samples))/float64(cfg.SampleRate), len(labels))
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

func stats(x []float64) (peak float64, rms float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
		sum += v * v
	}
	return peak, math.Sqrt(sum / float64(len(x)))
}
