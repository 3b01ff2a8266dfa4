package wavio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWriteReadMonoRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24} {
		path := filepath.Join(t.TempDir(), "sub", "tone.wav")
		const sr = 16000
		in := make([]float64, 4000)
		for i := range in {
			in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sr)
		}
		if err := WriteMono(path, in, sr, depth); err != nil {
			t.Fatalf("WriteMono(%d): %v", depth, err)
		}
		out, rate, err := ReadMono(path)
		if err != nil {
			t.Fatalf("ReadMono(%d): %v", depth, err)
		}
		if rate != sr || len(out) != len(in) {
			t.Fatalf("depth %d: rate=%d len=%d", depth, rate, len(out))
		}
		tol := 1e-3
		if depth == 24 {
			tol = 1e-5
		}
		for i := range in {
			if math.Abs(out[i]-in[i]) > tol {
				t.Fatalf("depth %d sample %d: got %g want %g", depth, i, out[i], in[i])
			}
		}
	}
}

func TestWriteMonoRejectsBitDepth(t *testing.T) {
	if err := WriteMono(filepath.Join(t.TempDir(), "x.wav"), []float64{0}, 16000, 12); err == nil {
		t.Fatalf("expected error for 12-bit output")
	}
}

func TestReadMonoMissingFile(t *testing.T) {
	if _, _, err := ReadMono(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if &out[0] != &in[0] {
		t.Fatalf("expected the input slice back")
	}
}

func TestResampleHalvesLength(t *testing.T) {
	in := make([]float64, 32000)
	out, err := Resample(in, 32000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if d := len(out) - 16000; d < -64 || d > 64 {
		t.Fatalf("unexpected resampled length %d", len(out))
	}
}
