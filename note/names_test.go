package note

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"C5", 72},
		{"A4", 69},
		{"a4", 69},
		{"C#5", 73},
		{"Db5", 73},
		{"Bb3", 58},
		{"Cb4", 59},
		{"C-1", 0},
		{"G9", 127},
		{"72", 72},
		{" 60 ", 60},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "H4", "C", "C#", "128", "-1", "G#9", "Cb-1", "x"} {
		if got, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) = %d, expected error", in, got)
		}
	}
}

func TestName(t *testing.T) {
	for midi := 0; midi <= 127; midi++ {
		got, err := Parse(Name(midi))
		if err != nil || got != midi {
			t.Fatalf("Name(%d) = %q does not parse back (%d, %v)", midi, Name(midi), got, err)
		}
	}
	if Name(-1) != "--" || Name(128) != "--" {
		t.Fatalf("out of range names should be --")
	}
}
