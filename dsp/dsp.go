package dsp

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// HighPass is a single-pole DC blocker: y[i] = alpha*(y[i-1] + x[i] - x[i-1]).
// History carries over between blocks so block edges do not click.
type HighPass struct {
	alpha float64

	// State (previous samples)
	x1 float64 // input history
	y1 float64 // output history
}

// NewHighPass creates a high-pass filter with coefficient alpha in (0,1).
func NewHighPass(alpha float64) (*HighPass, error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, fmt.Errorf("high-pass alpha must be in (0,1): %g", alpha)
	}
	return &HighPass{alpha: alpha}, nil
}

// Alpha returns the filter coefficient.
func (h *HighPass) Alpha() float64 {
	return h.alpha
}

// Process filters block in place and returns the largest absolute input
// sample seen before filtering.
func (h *HighPass) Process(block []float64) (peak float64) {
	x1, y1 := h.x1, h.y1
	for i, x := range block {
		if a := math.Abs(x); a > peak {
			peak = a
		}
		y := core.FlushDenormals(h.alpha * (y1 + x - x1))
		x1 = x
		y1 = y
		block[i] = y
	}
	h.x1, h.y1 = x1, y1
	return peak
}

// Reset clears the filter state
func (h *HighPass) Reset() {
	h.x1, h.y1 = 0, 0
}

// RMS returns sqrt(mean(x^2)) over block, or 0 for an empty block.
func RMS(block []float64) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, v := range block {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

// VolumePercent scales an RMS level to a 0..100 meter reading.
func VolumePercent(rms float64, scale float64) int {
	v := rms * scale
	if !(v > 0) {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(v)
}

// LevelDB converts an RMS level to dBFS, floored at -120.
func LevelDB(rms float64) float64 {
	if rms < 1e-6 {
		return -120
	}
	return core.LinearToDB(rms)
}
