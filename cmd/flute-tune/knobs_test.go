package main

import (
	"testing"

	"github.com/rouderaa/esp32BLEMidiFlute/flute"
)

func TestParseTuneGroups(t *testing.T) {
	groups, err := parseTuneGroups("detect, hum")
	if err != nil {
		t.Fatalf("parseTuneGroups: %v", err)
	}
	if !groups["detect"] || !groups["hum"] || groups["band"] {
		t.Fatalf("groups = %v", groups)
	}
	if _, err := parseTuneGroups("detect,room"); err == nil {
		t.Fatalf("expected error for unknown group")
	}
	if _, err := parseTuneGroups(" , "); err == nil {
		t.Fatalf("expected error for empty groups")
	}
}

func TestInitCandidateUsesBaseValues(t *testing.T) {
	base := flute.NewDefaultParams()
	defs, cand := initCandidate(base, map[string]bool{"detect": true, "band": true, "hum": true})
	if len(defs) != 6 {
		t.Fatalf("defs len = %d, want 6", len(defs))
	}
	if len(cand.Vals) != len(defs) {
		t.Fatalf("vals len = %d, want %d", len(cand.Vals), len(defs))
	}
	knobs := knobMap(defs, cand)
	if knobs["threshold"] != base.Threshold {
		t.Fatalf("threshold = %v, want %v", knobs["threshold"], base.Threshold)
	}
	if knobs["hum_harmonics"] != float64(base.HumHarmonics) {
		t.Fatalf("hum_harmonics = %v, want %d", knobs["hum_harmonics"], base.HumHarmonics)
	}
	if knobs["max_hz"] != base.Band.MaxHz {
		t.Fatalf("max_hz = %v, want %v", knobs["max_hz"], base.Band.MaxHz)
	}
}

func TestApplyCandidateLeavesBaseUntouched(t *testing.T) {
	base := flute.NewDefaultParams()
	defs := []knobDef{
		{Name: "threshold", Min: 0.01, Max: 2},
		{Name: "hpf_alpha", Min: 0.8, Max: 0.995},
		{Name: "min_hz", Min: 40, Max: 500},
		{Name: "hum_harmonics", Min: 1, Max: 8, IsInt: true},
	}
	p := applyCandidate(base, defs, candidate{Vals: []float64{1.5, 0.9, 200, 3}})
	if p.Threshold != 1.5 || p.HPFAlpha != 0.9 || p.Band.MinHz != 200 || p.HumHarmonics != 3 {
		t.Fatalf("applied params = %+v", p)
	}
	if base.Threshold != 0.2 || base.Band.MinHz != 80 {
		t.Fatalf("base modified: threshold=%v min_hz=%v", base.Threshold, base.Band.MinHz)
	}
}

func TestFromNormalized(t *testing.T) {
	defs := []knobDef{
		{Name: "a", Min: 0, Max: 10},
		{Name: "b", Min: 1, Max: 8, IsInt: true},
		{Name: "c", Min: -1, Max: 1},
	}
	c := fromNormalized([]float64{0.25, 0.5, 2}, defs)
	if c.Vals[0] != 2.5 {
		t.Fatalf("a = %v, want 2.5", c.Vals[0])
	}
	if c.Vals[1] != 5 {
		t.Fatalf("b = %v, want 5 (rounded from 4.5)", c.Vals[1])
	}
	if c.Vals[2] != 1 {
		t.Fatalf("c = %v, want clamped 1", c.Vals[2])
	}
	short := fromNormalized(nil, defs)
	if short.Vals[0] != 0 || short.Vals[2] != -1 {
		t.Fatalf("missing positions should map to Min, got %v", short.Vals)
	}
}
