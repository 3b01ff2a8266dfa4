package pitch

import (
	"fmt"
)

// Band is the musically relevant frequency range searched for a peak.
type Band struct {
	MinHz float64 `json:"min_hz"`
	MaxHz float64 `json:"max_hz"`
}

// DefaultBand covers the fundamentals of wind instruments and voice.
func DefaultBand() Band {
	return Band{MinHz: 80, MaxHz: 5000}
}

// Contains reports whether hz lies inside the closed band.
func (b Band) Contains(hz float64) bool {
	return hz >= b.MinHz && hz <= b.MaxHz
}

// Validate checks the band against the Nyquist limit of sampleRate.
func (b Band) Validate(sampleRate int) error {
	if b.MinHz <= 0 {
		return fmt.Errorf("band min must be > 0: %g", b.MinHz)
	}
	if b.MaxHz <= b.MinHz {
		return fmt.Errorf("band max %g must exceed min %g", b.MaxHz, b.MinHz)
	}
	if b.MaxHz > float64(sampleRate)/2 {
		return fmt.Errorf("band max %g above Nyquist %d", b.MaxHz, sampleRate/2)
	}
	return nil
}

// Estimate is the outcome of one peak search. OK is false when no peak
// passed the confidence gate or the refined frequency left the band.
type Estimate struct {
	Hz        float64 `json:"hz"`
	Bin       float64 `json:"bin"`
	Magnitude float64 `json:"magnitude"`
	OK        bool    `json:"ok"`
}

// PeakExtractor finds the dominant bin of a magnitude spectrum.
type PeakExtractor struct {
	band       Band
	threshold  float64
	sampleRate int
	n          int
	lo, hi     int
}

// NewPeakExtractor precomputes the bin range [lo, hi) for band.
func NewPeakExtractor(band Band, threshold float64, sampleRate int, n int) (*PeakExtractor, error) {
	if !IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: %d", ErrBlockLength, n)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %d", sampleRate)
	}
	if err := band.Validate(sampleRate); err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, fmt.Errorf("confidence threshold must be >= 0: %g", threshold)
	}
	lo := int(band.MinHz * float64(n) / float64(sampleRate))
	if lo < 1 {
		lo = 1
	}
	hi := int(band.MaxHz * float64(n) / float64(sampleRate))
	if hi > n/2 {
		hi = n / 2
	}
	if hi <= lo {
		return nil, fmt.Errorf("band %g..%g Hz covers no bins at %d Hz / %d", band.MinHz, band.MaxHz, sampleRate, n)
	}
	return &PeakExtractor{
		band:       band,
		threshold:  threshold,
		sampleRate: sampleRate,
		n:          n,
		lo:         lo,
		hi:         hi,
	}, nil
}

// Bins returns the searched bin range [lo, hi).
func (p *PeakExtractor) Bins() (lo, hi int) {
	return p.lo, p.hi
}

// Threshold returns the confidence threshold.
func (p *PeakExtractor) Threshold() float64 {
	return p.threshold
}

// Extract returns the interpolated peak frequency of mag. A maximum below
// the threshold yields an estimate with OK == false.
func (p *PeakExtractor) Extract(mag []float64) Estimate {
	if len(mag) < p.hi {
		return Estimate{}
	}
	peak := 0
	best := 0.0
	for i := p.lo; i < p.hi; i++ {
		if mag[i] > best {
			best = mag[i]
			peak = i
		}
	}
	if peak == 0 || best < p.threshold {
		return Estimate{Magnitude: best}
	}

	bin := float64(peak)
	if peak > p.lo && peak < p.hi-1 {
		bin += ParabolicOffset(mag[peak-1], mag[peak], mag[peak+1])
	}
	hz := bin * float64(p.sampleRate) / float64(p.n)
	return Estimate{
		Hz:        hz,
		Bin:       bin,
		Magnitude: best,
		OK:        p.band.Contains(hz),
	}
}

// ParabolicOffset returns the vertex offset, relative to the centre sample,
// of the parabola through (-1,y1), (0,y2), (1,y3). A flat fit returns 0.
func ParabolicOffset(y1, y2, y3 float64) float64 {
	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2
	if a == 0 {
		return 0
	}
	return -b / (2 * a)
}
