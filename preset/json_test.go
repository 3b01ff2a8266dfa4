package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/flute"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesOverrides(t *testing.T) {
	path := writePreset(t, `{
  "threshold": 0.35,
  "hpf_alpha": 0.97,
  "min_note": "A4",
  "max_note": "C7",
  "velocity": 100,
  "hum_reject": true,
  "mains_hz": 60,
  "program": "Flute",
  "greeting": "",
  "backoff_ms": 50,
  "record_dir": "takes"
}`)

	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.Threshold != 0.35 || p.HPFAlpha != 0.97 {
		t.Fatalf("detector fields mismatch: %+v", p)
	}
	if p.MinNote != 69 || p.MaxNote != 96 || p.Velocity != 100 {
		t.Fatalf("note fields mismatch: min=%d max=%d vel=%d", p.MinNote, p.MaxNote, p.Velocity)
	}
	if !p.HumReject || p.MainsHz != 60 {
		t.Fatalf("hum fields mismatch: %+v", p)
	}
	if p.Program != "Flute" || p.Greeting != "" || p.Backoff != 50*time.Millisecond {
		t.Fatalf("output fields mismatch: %+v", p)
	}
	if want := filepath.Join(filepath.Dir(path), "takes"); p.RecordDir != want {
		t.Fatalf("record dir = %q, want %q", p.RecordDir, want)
	}
	// Untouched fields keep defaults.
	if p.SampleRate != 16000 || p.BlockSize != 512 {
		t.Fatalf("defaults lost: rate=%d block=%d", p.SampleRate, p.BlockSize)
	}
}

func TestLoadJSONRejectsInvalidNote(t *testing.T) {
	path := writePreset(t, `{"min_note": "X9"}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for invalid note name")
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	for _, content := range []string{
		`{"channel": 16}`,
		`{"velocity": 0}`,
		`{"block_size": 500}`,
		`{"hpf_alpha": 1.5}`,
	} {
		path := writePreset(t, content)
		if _, err := LoadJSON(path); err == nil {
			t.Fatalf("expected error for %s", content)
		}
	}
}

func TestLoadJSONValidatesResult(t *testing.T) {
	path := writePreset(t, `{"min_note": "C7", "max_note": "C5"}`)
	if _, err := LoadJSON(path); !errors.Is(err, flute.ErrInvalidParams) {
		t.Fatalf("LoadJSON = %v, want ErrInvalidParams", err)
	}
}

func TestLoadJSONBadSyntax(t *testing.T) {
	path := writePreset(t, `{"threshold": `)
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	p := flute.NewDefaultParams()
	p.Threshold = 1.25
	p.MinNote = 60
	p.GreetingHold = 250 * time.Millisecond
	p.RecordDir = filepath.Join(t.TempDir(), "rec")

	path := filepath.Join(t.TempDir(), "out", "tuned.json")
	if err := WriteJSON(path, p); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if *got != *p {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}
}

func TestApplyFileNil(t *testing.T) {
	if err := ApplyFile(nil, &File{}); err == nil {
		t.Fatal("expected error for nil params")
	}
	p := flute.NewDefaultParams()
	if err := ApplyFile(p, nil); err != nil {
		t.Fatalf("nil file should be a no-op: %v", err)
	}
}
