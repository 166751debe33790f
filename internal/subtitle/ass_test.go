package subtitle

import (
	"strings"
	"testing"

	"github.com/subtitlepipe/core/internal/core"
)

func TestBuildASS_Structure(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 2, OriginalText: "hello"},
	}
	ass := BuildASS(segs, DefaultStylePreset(), TextOriginal, 1920, 1080)

	for _, want := range []string{
		"[Script Info]", "PlayResX: 1920", "PlayResY: 1080",
		"[V4+ Styles]", "Style: Default,",
		"[Events]", "Dialogue: 0,0:00:00.00,0:00:02.00,Default,,0,0,0,,hello",
	} {
		if !strings.Contains(ass, want) {
			t.Errorf("expected ASS output to contain %q, got:\n%s", want, ass)
		}
	}
}

func TestBuildASS_NewlineBecomesAssLineBreak(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 1, OriginalText: "line one", TranslatedText: "line two"},
	}
	ass := BuildASS(segs, DefaultStylePreset(), TextDual, 1280, 720)
	if !strings.Contains(ass, "line one\\Nline two") {
		t.Fatalf("expected dual-text newline to become \\N, got:\n%s", ass)
	}
}

func TestEscapeASSFilterPath(t *testing.T) {
	cases := map[string]string{
		`\`:  `\\`,
		`:`:  `\:`,
		`,`:  `\,`,
		`'`:  `\'`,
		"a":  "a",
		`C:\Users\file.ass`: `C\:\\Users\\file.ass`,
	}
	for in, want := range cases {
		if got := EscapeASSFilterPath(in); got != want {
			t.Errorf("EscapeASSFilterPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatASSTime(t *testing.T) {
	cases := map[float64]string{
		0:    "0:00:00.00",
		1.5:  "0:00:01.50",
		3661: "1:01:01.00",
	}
	for in, want := range cases {
		if got := formatASSTime(in); got != want {
			t.Errorf("formatASSTime(%v) = %q, want %q", in, got, want)
		}
	}
}
