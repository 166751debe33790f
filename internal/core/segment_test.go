package core_test

import (
	"testing"

	"github.com/subtitlepipe/core/internal/core"
)

func TestNewSpeechInterval(t *testing.T) {
	t.Parallel()

	t.Run("clamps and rounds", func(t *testing.T) {
		t.Parallel()
		iv, ok := core.NewSpeechInterval(-1.23456, 5.00001, 4.0)
		if !ok {
			t.Fatal("expected ok = true")
		}
		if iv.Start != 0 {
			t.Errorf("Start = %v, want 0", iv.Start)
		}
		if iv.End != 4 {
			t.Errorf("End = %v, want 4", iv.End)
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		t.Parallel()
		_, ok := core.NewSpeechInterval(3.0, 3.0, 10.0)
		if ok {
			t.Error("expected ok = false for zero-length interval")
		}
	})

	t.Run("rounds to 3 decimals", func(t *testing.T) {
		t.Parallel()
		iv, ok := core.NewSpeechInterval(1.00049, 2.00051, 10.0)
		if !ok {
			t.Fatal("expected ok = true")
		}
		if iv.Start != 1.0 {
			t.Errorf("Start = %v, want 1.0", iv.Start)
		}
		if iv.End != 2.001 {
			t.Errorf("End = %v, want 2.001", iv.End)
		}
	})
}

func TestSortIntervals(t *testing.T) {
	t.Parallel()
	in := []core.SpeechInterval{{Start: 5, End: 6}, {Start: 1, End: 2}, {Start: 3, End: 4}}
	got := core.SortIntervals(in)
	want := []float64{1, 3, 5}
	for i, w := range want {
		if got[i].Start != w {
			t.Errorf("got[%d].Start = %v, want %v", i, got[i].Start, w)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"  hello   world  ": "hello world",
		"a\tb\nc":           "a b c",
		"":                  "",
	}
	for in, want := range tests {
		if got := core.NormalizeText(in); got != want {
			t.Errorf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReindex(t *testing.T) {
	t.Parallel()
	segments := []core.Segment{
		{Index: 99, Start: 5.0},
		{Index: 1, Start: 1.0},
		{Index: 2, Start: 3.0},
	}
	got := core.Reindex(segments)
	for i, s := range got {
		if s.Index != i+1 {
			t.Errorf("segment %d has Index %d, want %d", i, s.Index, i+1)
		}
	}
	if got[0].Start != 1.0 || got[1].Start != 3.0 || got[2].Start != 5.0 {
		t.Error("Reindex did not sort by Start ascending")
	}
}
