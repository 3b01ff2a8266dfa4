package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rouderaa/esp32BLEMidiFlute/analysis"
	"github.com/rouderaa/esp32BLEMidiFlute/flute"
	"github.com/rouderaa/esp32BLEMidiFlute/internal/wavio"
	"github.com/rouderaa/esp32BLEMidiFlute/note"
	"github.com/rouderaa/esp32BLEMidiFlute/preset"
	"github.com/rouderaa/esp32BLEMidiFlute/synth"
)

type frameLine struct {
	Seq       uint64   `json:"seq"`
	TimeS     float64  `json:"time_s"`
	Hz        float64  `json:"hz"`
	Magnitude float64  `json:"magnitude"`
	Note      string   `json:"note,omitempty"`
	Playing   int      `json:"playing"`
	Volume    int      `json:"volume"`
	Events    []string `json:"events,omitempty"`
}

func main() {
	wavPath := flag.String("wav", "", "Input WAV")
	presetPath := flag.String("preset", "", "Optional preset JSON")
	labelsPath := flag.String("labels", "", "Optional label JSON to score against")
	jsonOut := flag.Bool("json", false, "Print one JSON object per frame")
	hum := flag.Float64("hum", 0, "Enable hum rejection at this mains frequency")
	flag.Parse()

	if *wavPath == "" {
		fmt.Fprintln(os.Stderr, "-wav is required")
		os.Exit(2)
	}

	p := flute.NewDefaultParams()
	if *presetPath != "" {
		var err error
		if p, err = preset.LoadJSON(*presetPath); err != nil {
			fmt.Fprintf(os.Stderr, "preset: %v\n", err)
			os.Exit(1)
		}
	}
	if *hum > 0 {
		p.HumReject = true
		p.MainsHz = *hum
	}

	samples, sr, err := wavio.ReadMono(*wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wav: %v\n", err)
		os.Exit(1)
	}
	if sr != p.SampleRate {
		if samples, err = wavio.Resample(samples, sr, p.SampleRate); err != nil {
			fmt.Fprintf(os.Stderr, "resample: %v\n", err)
			os.Exit(1)
		}
	}

	frames, err := flute.Detect(p, samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		os.Exit(1)
	}

	blockS := float64(p.BlockSize) / float64(p.SampleRate)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		for _, f := range frames {
			if err := enc.Encode(toLine(f, blockS)); err != nil {
				fmt.Fprintf(os.Stderr, "encode: %v\n", err)
				os.Exit(1)
			}
		}
	} else {
		printEvents(frames, blockS)
	}

	if *labelsPath == "" {
		return
	}
	lf, err := synth.ReadLabels(*labelsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labels: %v\n", err)
		os.Exit(1)
	}
	if lf.SampleRate != p.SampleRate {
		fmt.Fprintf(os.Stderr, "labels are at %d Hz, pipeline runs at %d Hz\n", lf.SampleRate, p.SampleRate)
		os.Exit(1)
	}
	ref := synth.FrameLabels(lf.Labels, lf.Samples, p.BlockSize)
	m := analysis.Compare(flute.PlayedNotes(frames), ref)
	printMetrics(m)
}

func toLine(f flute.Frame, blockS float64) frameLine {
	l := frameLine{
		Seq:       f.Seq,
		TimeS:     float64(f.Seq-1) * blockS,
		Hz:        f.Estimate.Hz,
		Magnitude: f.Estimate.Magnitude,
		Playing:   f.Playing,
		Volume:    f.Volume,
	}
	if f.NoteOK {
		l.Note = f.Note.String()
	}
	for _, ev := range f.Events {
		l.Events = append(l.Events, ev.String())
	}
	return l
}

func printEvents(frames []flute.Frame, blockS float64) {
	fmt.Printf("%-8s %-10s %-6s %s\n", "time", "event", "note", "hz")
	count := 0
	for _, f := range frames {
		for _, ev := range f.Events {
			fmt.Printf("%-8.3f %-10s %-6s %.1f\n",
				float64(f.Seq-1)*blockS, ev.Kind, note.Name(ev.MIDI), f.Estimate.Hz)
			count++
		}
	}
	fmt.Printf("\n%d frames, %d events\n", len(frames), count)
}

func printMetrics(m analysis.Metrics) {
	fmt.Println()
	fmt.Printf("Frames:       ref=%d det=%d aligned=%d lag=%d\n",
		m.ReferenceFrames, m.DetectedFrames, m.AlignedFrames, m.LagFrames)
	fmt.Printf("Accuracy:     %.3f\n", m.Accuracy)
	fmt.Printf("Note recall:  %.3f (octave errors %.3f)\n", m.NoteRecall, m.OctaveErrors)
	fmt.Printf("Miss / false: %.3f / %.3f\n", m.MissRate, m.FalseRate)
	fmt.Printf("Onsets:       ref=%d det=%d churn=%.3f\n", m.ReferenceOnsets, m.DetectedOnsets, m.Churn)
	fmt.Printf("Score:        %.4f (similarity %.4f)\n", m.Score, m.Similarity)
}
