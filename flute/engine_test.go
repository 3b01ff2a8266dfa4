package flute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/rouderaa/esp32BLEMidiFlute/audio"
	"github.com/rouderaa/esp32BLEMidiFlute/tracker"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T, src audio.Source, sink *recordingSink, opts ...Option) *Engine {
	t.Helper()
	return newTestEngineWith(t, NewDefaultParams(), src, sink, opts...)
}

func newTestEngineWith(t *testing.T, p *Params, src audio.Source, sink *recordingSink, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	e, err := New(p, src, sink, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.wait = func(context.Context, time.Duration) bool { return true }
	return e
}

func stepAll(t *testing.T, e *Engine) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := e.Step()
		if err != nil {
			return frames
		}
		frames = append(frames, f)
	}
}

func TestNewRejectsRateMismatch(t *testing.T) {
	src := &scriptSource{rate: 44100}
	if _, err := New(NewDefaultParams(), src, &recordingSink{}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("New = %v, want ErrInvalidParams", err)
	}
}

func TestNewHumNeedsMains(t *testing.T) {
	p := NewDefaultParams()
	p.HumReject = true
	src := script()
	if _, err := New(p, src, &recordingSink{}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("New = %v, want ErrInvalidParams", err)
	}
	p.MainsHz = 50
	if _, err := New(p, src, &recordingSink{}); err != nil {
		t.Fatalf("New with mains: %v", err)
	}
}

func TestStepNoteSequence(t *testing.T) {
	src := script(tones(0, 2), tones(hzC5, 4), tones(hzE5, 3), tones(0, 3))
	sink := &recordingSink{}
	e := newTestEngine(t, src, sink)

	frames := stepAll(t, e)
	if len(frames) != 12 {
		t.Fatalf("got %d frames, want 12", len(frames))
	}
	want := []string{"on 72", "off 72", "on 76", "off 76"}
	if !reflect.DeepEqual(sink.events, want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}

	if frames[0].NoteOK || frames[0].Volume != 0 {
		t.Fatalf("silent frame reported a note: %+v", frames[0])
	}
	c5 := frames[3]
	if !c5.NoteOK || c5.Note.MIDI != 72 || c5.Note.String() != "C5" {
		t.Fatalf("C5 frame = %+v", c5.Note)
	}
	if c5.Volume != 100 || c5.State != tracker.Sounding {
		t.Fatalf("C5 frame volume %d state %v", c5.Volume, c5.State)
	}
	if frames[len(frames)-1].State != tracker.Silent {
		t.Fatal("tracker should be silent after the tone stops")
	}
}

func TestDefaultRangeSoundsEveryBandNote(t *testing.T) {
	for _, tc := range []struct {
		hz   float64
		midi int
	}{
		{hzA3, 57},
		{hzA4, 69},
		{hzC5, 72},
	} {
		src := script(tones(tc.hz, 20), tones(0, 2))
		sink := &recordingSink{}
		e := newTestEngine(t, src, sink)

		stepAll(t, e)
		want := []string{fmt.Sprintf("on %d", tc.midi), fmt.Sprintf("off %d", tc.midi)}
		if !reflect.DeepEqual(sink.events, want) {
			t.Fatalf("%.2f Hz: events = %v, want %v", tc.hz, sink.events, want)
		}
	}
}

func TestNotesBelowRangeAreSilent(t *testing.T) {
	p := NewDefaultParams()
	p.MinNote = 72
	src := script(tones(hzA3, 4))
	sink := &recordingSink{}
	e := newTestEngineWith(t, p, src, sink)

	frames := stepAll(t, e)
	if len(sink.events) != 0 {
		t.Fatalf("A3 is below the playable range, got %v", sink.events)
	}
	if !frames[1].NoteOK || frames[1].Note.MIDI != 57 {
		t.Fatalf("A3 should still be detected, got %+v", frames[1].Note)
	}
}

func TestMuteForcesNoteOff(t *testing.T) {
	src := script(tones(hzC5, 6))
	sink := &recordingSink{}
	var gate Switch
	e := newTestEngine(t, src, sink, WithGate(&gate))

	if _, err := e.Step(); err != nil {
		t.Fatal(err)
	}
	gate.Set(true)
	f, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !f.Muted {
		t.Fatal("frame should report mute")
	}
	if _, err := e.Step(); err != nil {
		t.Fatal(err)
	}
	gate.Set(false)
	if _, err := e.Step(); err != nil {
		t.Fatal(err)
	}

	want := []string{"on 72", "off 72", "on 72"}
	if !reflect.DeepEqual(sink.events, want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
}

func TestStepAcquisitionFault(t *testing.T) {
	src := script([]step{{err: errMic}}, tones(hzC5, 1))
	sink := &recordingSink{}
	e := newTestEngine(t, src, sink)

	f, err := e.Step()
	if !errors.Is(err, ErrAcquire) || !errors.Is(err, errMic) {
		t.Fatalf("Step err = %v", err)
	}
	if !f.Fault || len(f.Events) != 0 {
		t.Fatalf("fault frame = %+v", f)
	}
	if _, err := e.Step(); err != nil {
		t.Fatalf("recovery step: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("events = %v", sink.events)
	}
}

func TestRunBacksOffAndReleases(t *testing.T) {
	src := script(tones(hzC5, 2), []step{{err: errMic}, {err: errMic}}, tones(hzC5, 2))
	sink := &recordingSink{}
	var frames []Frame
	e := newTestEngine(t, src, sink, WithObserver(func(f Frame) { frames = append(frames, f) }))

	var waits []time.Duration
	e.wait = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return true
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(frames) != 6 {
		t.Fatalf("observer saw %d frames, want 6", len(frames))
	}
	if len(waits) != 2 || waits[0] != 200*time.Millisecond {
		t.Fatalf("waits = %v", waits)
	}
	want := []string{"on 72", "off 72"}
	if !reflect.DeepEqual(sink.events, want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
}

func TestRunStopsWhenSourceCloses(t *testing.T) {
	src := script(tones(hzC5, 2), []step{{err: audio.ErrClosed}}, tones(hzC5, 2))
	sink := &recordingSink{}
	e := newTestEngine(t, src, sink)
	e.wait = func(context.Context, time.Duration) bool {
		t.Fatal("closed source must not be retried")
		return false
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.pos != 3 {
		t.Fatalf("Run acquired %d blocks, want 3", src.pos)
	}
	want := []string{"on 72", "off 72"}
	if !reflect.DeepEqual(sink.events, want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	data := make([]float64, 16000)
	src := audio.NewBufferSource(data, 16000, audio.WithLoop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := 0
	e := newTestEngine(t, src, &recordingSink{}, WithObserver(func(Frame) {
		n++
		if n == 3 {
			cancel()
		}
	}))
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 3 {
		t.Fatalf("ran %d cycles after cancel, want 3", n)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	src := script([]step{{err: errMic}}, tones(hzC5, 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, src, &recordingSink{})
	e.wait = sleepCtx
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.pos != 0 {
		t.Fatalf("Run consumed %d blocks after cancel", src.pos)
	}
}

func TestSinkErrorDoesNotStopTracking(t *testing.T) {
	src := script(tones(hzC5, 2), tones(0, 1))
	sink := &recordingSink{err: errors.New("not connected")}
	e := newTestEngine(t, src, sink)

	_, err := e.Step()
	if !errors.Is(err, ErrSink) {
		t.Fatalf("Step err = %v, want ErrSink", err)
	}
	if _, err := e.Step(); err != nil {
		t.Fatalf("steady note should not send: %v", err)
	}
	_, err = e.Step()
	if !errors.Is(err, ErrSink) {
		t.Fatalf("Step err = %v, want ErrSink", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("events = %v", sink.events)
	}
}

func TestRecorderCapturesRawInput(t *testing.T) {
	dir := t.TempDir()
	rec, err := audio.NewRecorder(dir, 16000, 0.0625)
	if err != nil {
		t.Fatal(err)
	}
	src := script(tones(hzC5, 4))
	e := newTestEngine(t, src, &recordingSink{}, WithRecorder(rec))

	path, err := rec.Arm()
	if err != nil {
		t.Fatal(err)
	}
	f1, _ := e.Step()
	if !f1.Recording || f1.Recorded != "" {
		t.Fatalf("first frame = recording %v recorded %q", f1.Recording, f1.Recorded)
	}
	f2, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if f2.Recorded != path || f2.Recording {
		t.Fatalf("second frame = recording %v recorded %q", f2.Recording, f2.Recorded)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("recording not written: %v", err)
	}
}

func TestHumRejectKeepsPitch(t *testing.T) {
	p := NewDefaultParams()
	p.HumReject = true
	p.MainsHz = 50
	sink := &recordingSink{}
	e, err := New(p, script(tones(hzE5, 3)), sink)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Release(); err != nil {
		t.Fatal(err)
	}
	want := []string{"on 76", "off 76"}
	if !reflect.DeepEqual(sink.events, want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
}
