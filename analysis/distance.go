package analysis

import (
	"math"
)

// Rest marks a frame without a note in detected and reference sequences.
const Rest = -1

// Metrics contains agreement measurements between a detected per-frame
// note sequence and a reference labeling.
type Metrics struct {
	ReferenceFrames int `json:"reference_frames"`
	DetectedFrames  int `json:"detected_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagFrames       int `json:"lag_frames"`

	Accuracy     float64 `json:"accuracy"`
	NoteRecall   float64 `json:"note_recall"`
	OctaveErrors float64 `json:"octave_errors"`
	MissRate     float64 `json:"miss_rate"`
	FalseRate    float64 `json:"false_rate"`

	ReferenceOnsets int     `json:"reference_onsets"`
	DetectedOnsets  int     `json:"detected_onsets"`
	Churn           float64 `json:"churn"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// MaxLagFrames bounds the latency compensation applied by Compare.
const MaxLagFrames = 4

// Compare aligns detected against reference (detected may lag by up to
// MaxLagFrames) and returns frame metrics plus a combined score in [0,1],
// where 0 is a perfect match.
func Compare(detected []int, reference []int) Metrics {
	m := Metrics{
		ReferenceFrames: len(reference),
		DetectedFrames:  len(detected),
	}
	if len(reference) == 0 || len(detected) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	maxLag := MaxLagFrames
	if maxLag > len(detected)-1 {
		maxLag = len(detected) - 1
	}
	lag := estimateLag(reference, detected, maxLag)
	m.LagFrames = lag

	ref, det := alignByLag(reference, detected, lag)
	n := len(ref)
	if len(det) < n {
		n = len(det)
	}
	if n == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}
	ref, det = ref[:n], det[:n]
	m.AlignedFrames = n

	var match, voiced, hit, octave, miss, rest, falseOn int
	for i := 0; i < n; i++ {
		r, d := ref[i], det[i]
		if r == d {
			match++
		}
		if r == Rest {
			rest++
			if d != Rest {
				falseOn++
			}
			continue
		}
		voiced++
		switch {
		case d == r:
			hit++
		case d == Rest:
			miss++
		case (d-r)%12 == 0:
			octave++
		}
	}
	m.Accuracy = ratio(match, n)
	m.NoteRecall = ratio(hit, voiced)
	m.OctaveErrors = ratio(octave, voiced)
	m.MissRate = ratio(miss, voiced)
	m.FalseRate = ratio(falseOn, rest)

	m.ReferenceOnsets = Onsets(ref)
	m.DetectedOnsets = Onsets(det)
	if m.ReferenceOnsets > 0 {
		m.Churn = math.Abs(float64(m.DetectedOnsets-m.ReferenceOnsets)) / float64(m.ReferenceOnsets)
	} else if m.DetectedOnsets > 0 {
		m.Churn = 1
	}

	// Normalize sub-metrics and combine.
	errNorm := clamp01(1 - m.Accuracy)
	churnNorm := clamp01(m.Churn)
	m.Score = clamp01(0.50*errNorm + 0.20*m.MissRate + 0.15*m.FalseRate + 0.15*churnNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	return m
}

// Onsets counts note starts: frames whose note differs from the previous
// frame and is not a rest.
func Onsets(frames []int) int {
	prev := Rest
	n := 0
	for _, f := range frames {
		if f != Rest && f != prev {
			n++
		}
		prev = f
	}
	return n
}

// estimateLag returns the shift of cand relative to ref in [0, maxLag]
// frames with the most matching frames. Ties keep the smallest lag.
func estimateLag(ref []int, cand []int, maxLag int) int {
	best := 0
	bestScore := -1.0
	for lag := 0; lag <= maxLag; lag++ {
		s := matchesAtLag(ref, cand, lag)
		if s > bestScore {
			bestScore = s
			best = lag
		}
	}
	return best
}

func matchesAtLag(ref []int, cand []int, lag int) float64 {
	n := len(ref)
	if len(cand)-lag < n {
		n = len(cand) - lag
	}
	if n <= 0 {
		return 0
	}
	match := 0
	for i := 0; i < n; i++ {
		if ref[i] == cand[i+lag] {
			match++
		}
	}
	return float64(match) / float64(n)
}

func alignByLag(ref []int, cand []int, lag int) ([]int, []int) {
	if lag <= 0 {
		return ref, cand
	}
	if lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[lag:]
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
