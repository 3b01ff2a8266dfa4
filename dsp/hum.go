package dsp

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// HumFilter notches out mains hum and its first harmonics.
type HumFilter struct {
	chain *biquad.Chain
	freqs []float64
}

// NewHumFilter builds a notch cascade at mainsHz and its integer multiples,
// up to harmonics sections. Harmonics at or above 0.45*sampleRate are skipped.
func NewHumFilter(mainsHz float64, harmonics int, q float64, sampleRate float64) (*HumFilter, error) {
	if mainsHz <= 0 {
		return nil, fmt.Errorf("mains frequency must be > 0: %g", mainsHz)
	}
	if harmonics < 1 {
		return nil, fmt.Errorf("hum harmonics must be >= 1: %d", harmonics)
	}
	if q <= 0 {
		return nil, fmt.Errorf("hum notch q must be > 0: %g", q)
	}
	limit := 0.45 * sampleRate
	coeffs := make([]biquad.Coefficients, 0, harmonics)
	freqs := make([]float64, 0, harmonics)
	for k := 1; k <= harmonics; k++ {
		f := mainsHz * float64(k)
		if f >= limit {
			break
		}
		coeffs = append(coeffs, design.Notch(f, q, sampleRate))
		freqs = append(freqs, f)
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("no hum notch fits below %.0f Hz", limit)
	}
	return &HumFilter{chain: biquad.NewChain(coeffs), freqs: freqs}, nil
}

// Frequencies returns the notch centre frequencies in Hz.
func (h *HumFilter) Frequencies() []float64 {
	return append([]float64(nil), h.freqs...)
}

// ProcessBlock filters block in place.
func (h *HumFilter) ProcessBlock(block []float64) {
	h.chain.ProcessBlock(block)
}

// Reset clears the notch states.
func (h *HumFilter) Reset() {
	h.chain.Reset()
}
