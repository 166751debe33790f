package subtitle

import (
	"strings"
	"testing"

	"github.com/subtitlepipe/core/internal/core"
)

func TestSerializeSRT_Basic(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0.75, End: 2.75, OriginalText: "Hello world"},
	}
	got := SerializeSRT(segs, TextOriginal)
	want := "1\n00:00:00,750 --> 00:00:02,750\nHello world\n\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSerializeSRT_Dual(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 1, OriginalText: "hi", TranslatedText: "salut"},
	}
	got := SerializeSRT(segs, TextDual)
	if !strings.Contains(got, "hi\nsalut\n\n") {
		t.Fatalf("dual mode should emit original then translation, got %q", got)
	}
}

func TestParseSRT_RoundTrip(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0.75, End: 2.75, OriginalText: "Hello world"},
		{Index: 2, Start: 3.1, End: 4.2, OriginalText: "Second line\nwrapped"},
	}
	serialized := SerializeSRT(segs, TextOriginal)

	parsed, err := ParseSRT(serialized)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(parsed))
	}
	reserialized := SerializeSRT(parsed, TextOriginal)
	if reserialized != serialized {
		t.Fatalf("P1 violated: re-serialization differs.\ngot:  %q\nwant: %q", reserialized, serialized)
	}
}

func TestParseSRT_TolerantOfCRLFAndBOM(t *testing.T) {
	doc := "﻿1\r\n00:00:00,000 --> 00:00:01,000\r\nHello\r\n\r\n"
	parsed, err := ParseSRT(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 1 || parsed[0].OriginalText != "Hello" {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
}

func TestFormatSRTTime(t *testing.T) {
	cases := map[float64]string{
		0:       "00:00:00,000",
		0.75:    "00:00:00,750",
		3661.25: "01:01:01,250",
	}
	for in, want := range cases {
		if got := formatSRTTime(in); got != want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestEmptySegmentsYieldEmptySRT(t *testing.T) {
	if got := SerializeSRT(nil, TextOriginal); got != "" {
		t.Fatalf("expected empty string for no segments, got %q", got)
	}
}
