// Package pitch turns a filtered sample block into a dominant-frequency
// estimate: Hamming window, in-place DFT, magnitude, band-limited peak pick.
package pitch

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// ErrBlockLength reports a block length that is not a power of two >= 4.
var ErrBlockLength = errors.New("block length must be a power of two >= 4")

// Spectrum holds the per-bin transform of the last analyzed block. After
// Analyze returns, Re holds magnitudes and Im the imaginary parts.
type Spectrum struct {
	Re []float64
	Im []float64
}

// Analyzer computes magnitude spectra of fixed-length blocks without
// allocating per call.
type Analyzer struct {
	n       int
	coeffs  []float64
	plan    *algofft.Plan[complex128]
	scratch []complex128
	spec    Spectrum
}

// IsPowerOfTwo reports whether n is a power of two >= 4.
func IsPowerOfTwo(n int) bool {
	return n >= 4 && n&(n-1) == 0
}

// NewAnalyzer prepares an analyzer for blocks of n samples.
func NewAnalyzer(n int) (*Analyzer, error) {
	if !IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: %d", ErrBlockLength, n)
	}
	coeffs, err := window.Hamming(n)
	if err != nil {
		return nil, fmt.Errorf("hamming window: %w", err)
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	return &Analyzer{
		n:       n,
		coeffs:  coeffs,
		plan:    plan,
		scratch: make([]complex128, n),
		spec: Spectrum{
			Re: make([]float64, n),
			Im: make([]float64, n),
		},
	}, nil
}

// Len returns the block length.
func (a *Analyzer) Len() int {
	return a.n
}

// Analyze windows block in place, transforms it and returns the per-bin
// magnitudes. The returned slice is owned by the analyzer and is overwritten
// by the next call. The caller must not rely on block contents afterwards.
// It panics if len(block) differs from Len.
func (a *Analyzer) Analyze(block []float64) []float64 {
	if len(block) != a.n {
		panic(fmt.Sprintf("pitch: block length %d, analyzer expects %d", len(block), a.n))
	}
	if err := window.ApplyCoefficientsInPlace(block, a.coeffs); err != nil {
		panic(fmt.Sprintf("pitch: window: %v", err))
	}
	for i, v := range block {
		a.scratch[i] = complex(v, 0)
	}
	if err := a.plan.InPlace(a.scratch); err != nil {
		panic(fmt.Sprintf("pitch: fft: %v", err))
	}
	re, im := a.spec.Re, a.spec.Im
	for i, c := range a.scratch {
		re[i] = real(c)
		im[i] = imag(c)
	}
	spectrum.MagnitudeFromParts(re, re, im)
	return re
}

// Spectrum returns the buffers written by the last Analyze call.
func (a *Analyzer) Spectrum() Spectrum {
	return a.spec
}

// BinHz returns the width of one bin in Hz.
func BinHz(sampleRate, n int) float64 {
	return float64(sampleRate) / float64(n)
}
