package audio

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/internal/wavio"
)

func TestNewRecorderValidates(t *testing.T) {
	if _, err := NewRecorder(t.TempDir(), 0, 2); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewRecorder(t.TempDir(), 16000, 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestRecorderCapturesFixedLength(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 1000, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	rec.now = func() time.Time { return time.UnixMilli(1700000000123) }

	block := make([]float64, 100)
	for i := range block {
		block[i] = 0.25
	}

	// Not armed: blocks are ignored.
	if _, done, err := rec.Capture(block); done || err != nil {
		t.Fatalf("unarmed Capture = done %v err %v", done, err)
	}

	path, err := rec.Arm()
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if want := filepath.Join(dir, "recording_1700000000123.wav"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if _, err := rec.Arm(); !errors.Is(err, ErrRecording) {
		t.Fatalf("second Arm err = %v, want ErrRecording", err)
	}

	for i := 0; i < 2; i++ {
		if _, done, err := rec.Capture(block); done || err != nil {
			t.Fatalf("Capture %d: done %v err %v", i, done, err)
		}
	}
	if p := rec.Progress(); p != 0.8 {
		t.Fatalf("Progress = %v, want 0.8", p)
	}

	got, done, err := rec.Capture(block)
	if err != nil || !done || got != path {
		t.Fatalf("final Capture = %q %v %v", got, done, err)
	}
	if rec.Active() {
		t.Fatal("recorder should be idle after completion")
	}

	data, rate, err := wavio.ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if rate != 1000 || len(data) != 250 {
		t.Fatalf("recording has rate %d and %d samples", rate, len(data))
	}

	if _, err := rec.Arm(); err != nil {
		t.Fatalf("re-Arm after completion: %v", err)
	}
}
