package subtitle

import (
	"strings"
	"testing"
)

func TestBuildFFConcat(t *testing.T) {
	frames := []ConcatFrame{
		{RelativePath: "frame-0001.png", DurationSec: 1.234567},
		{RelativePath: "frame-0002.png", DurationSec: 0.5},
	}
	got := BuildFFConcat(frames)

	want := "ffconcat version 1.0\n" +
		"file 'frame-0001.png'\n" +
		"duration 1.234567\n" +
		"file 'frame-0002.png'\n" +
		"duration 0.500000\n" +
		"file 'frame-0002.png'\n"

	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildFFConcat_Empty(t *testing.T) {
	got := BuildFFConcat(nil)
	if !strings.HasPrefix(got, "ffconcat version 1.0\n") {
		t.Fatalf("expected header even when empty, got %q", got)
	}
}
