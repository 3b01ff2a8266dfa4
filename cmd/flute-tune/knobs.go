package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/rouderaa/esp32BLEMidiFlute/flute"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

// parseTuneGroups parses a comma-separated string of group names.
// Valid groups: detect, band, hum.
func parseTuneGroups(raw string) (map[string]bool, error) {
	valid := map[string]bool{"detect": true, "band": true, "hum": true}
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !valid[s] {
			return nil, fmt.Errorf("unknown tune group %q (valid: detect, band, hum)", s)
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no tune groups specified")
	}
	return groups, nil
}

// initCandidate returns the knob definitions for groups and a candidate
// holding the values currently in base.
func initCandidate(base *flute.Params, groups map[string]bool) ([]knobDef, candidate) {
	var defs []knobDef
	var vals []float64
	add := func(d knobDef, v float64) {
		defs = append(defs, d)
		vals = append(vals, clamp(v, d.Min, d.Max))
	}

	if groups["detect"] {
		add(knobDef{Name: "threshold", Min: 0.01, Max: 2.0}, base.Threshold)
		add(knobDef{Name: "hpf_alpha", Min: 0.8, Max: 0.995}, base.HPFAlpha)
	}
	if groups["band"] {
		nyq := float64(base.SampleRate) / 2
		add(knobDef{Name: "min_hz", Min: 40, Max: 500}, base.Band.MinHz)
		add(knobDef{Name: "max_hz", Min: 1000, Max: math.Max(1000, nyq-1)}, base.Band.MaxHz)
	}
	if groups["hum"] {
		add(knobDef{Name: "hum_q", Min: 5, Max: 80}, base.HumQ)
		add(knobDef{Name: "hum_harmonics", Min: 1, Max: 8, IsInt: true}, float64(base.HumHarmonics))
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns a copy of base with the candidate knob values set.
func applyCandidate(base *flute.Params, defs []knobDef, c candidate) *flute.Params {
	p := base.Clone()
	for i, d := range defs {
		v := c.Vals[i]
		switch d.Name {
		case "threshold":
			p.Threshold = v
		case "hpf_alpha":
			p.HPFAlpha = v
		case "min_hz":
			p.Band.MinHz = v
		case "max_hz":
			p.Band.MaxHz = v
		case "hum_q":
			p.HumQ = v
		case "hum_harmonics":
			p.HumHarmonics = int(math.Round(v))
		}
	}
	return p
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	m := make(map[string]float64, len(defs))
	for i, d := range defs {
		m[d.Name] = c.Vals[i]
	}
	return m
}
