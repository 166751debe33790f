package finalize

import (
	"testing"

	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/subtitle"
)

func TestRun_EmptyInput(t *testing.T) {
	out := Run(nil, Options{Thresholds: core.DefaultThresholds()})
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d segments", len(out))
	}
}

func TestRun_MatchesSpecWorkedExample(t *testing.T) {
	// Spec §8 scenario 2: one segment [0.75, 2.75] "Hello world" already
	// satisfies MIN_DUR=1.0, so finalize should pass it through unchanged
	// apart from re-indexing.
	segs := []core.Segment{
		{Index: 1, Start: 0.75, End: 2.75, OriginalText: "Hello world"},
	}
	out := Run(segs, Options{Thresholds: core.DefaultThresholds()})
	if len(out) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(out))
	}
	if out[0].Start != 0.75 || out[0].End != 2.75 || out[0].OriginalText != "Hello world" {
		t.Fatalf("unexpected segment: %+v", out[0])
	}
}

func TestDedupAndGapRepair_TrimsOverlap(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 1, OriginalText: "the quick brown fox"},
		{Index: 2, Start: 1.1, End: 2, OriginalText: "brown fox jumps"},
	}
	out := dedupAndGapRepair(segs)
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(out), out)
	}
	if out[1].OriginalText != "jumps" {
		t.Fatalf("expected overlap trimmed to %q, got %q", "jumps", out[1].OriginalText)
	}
}

func TestDedupAndGapRepair_BlanksNearDuplicate(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 1, OriginalText: "hello there friend"},
		{Index: 2, Start: 1.1, End: 2, OriginalText: "hello there friend"},
	}
	out := dedupAndGapRepair(segs)
	if len(out) != 1 {
		t.Fatalf("expected duplicate collapsed, got %d segments: %+v", len(out), out)
	}
}

func TestTinyTailMerge(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 1, OriginalText: "hello there"},
		{Index: 2, Start: 1.2, End: 1.5, OriginalText: "friend"},
	}
	out := tinyTailMerge(segs, 1.0)
	if len(out) != 1 {
		t.Fatalf("expected merge, got %d segments: %+v", len(out), out)
	}
	if out[0].OriginalText != "hello there friend" {
		t.Fatalf("unexpected merged text: %q", out[0].OriginalText)
	}
}

func TestTinyTailMerge_SkipsAfterTerminalPunctuation(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 1, OriginalText: "hello there."},
		{Index: 2, Start: 1.2, End: 1.5, OriginalText: "friend"},
	}
	out := tinyTailMerge(segs, 1.0)
	if len(out) != 2 {
		t.Fatalf("expected no merge after terminal punctuation, got %d segments", len(out))
	}
}

func TestEnforceDurationFloor_BorrowsFromNextGap(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 0.3, OriginalText: "hi"},
		{Index: 2, Start: 5, End: 6, OriginalText: "there"},
	}
	enforceDurationFloor(segs, core.DefaultThresholds())
	if segs[0].Duration() < 1.0-1e-9 {
		t.Fatalf("expected duration floor to reach MinDur, got %v", segs[0].Duration())
	}
}

func TestEnforceGapFloor_ShiftsNextStart(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0, End: 2, OriginalText: "a"},
		{Index: 2, Start: 2.01, End: 3, OriginalText: "b"},
	}
	enforceGapFloor(segs, 0.12, 0.3)
	if segs[1].Start < segs[0].End+0.12-1e-9 {
		t.Fatalf("gap floor not enforced: %+v", segs)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	if got := jaccardSimilarity([]string{"a", "b"}, []string{"a", "b"}); got != 1 {
		t.Fatalf("expected identical sets to be fully similar, got %v", got)
	}
	if got := jaccardSimilarity([]string{"a", "b"}, []string{"c", "d"}); got != 0 {
		t.Fatalf("expected disjoint sets to have zero similarity, got %v", got)
	}
}

func TestSuffixPrefixOverlap(t *testing.T) {
	a := []string{"the", "quick", "brown", "fox"}
	b := []string{"brown", "fox", "jumps"}
	if n := suffixPrefixOverlap(a, b); n != 2 {
		t.Fatalf("expected overlap of 2, got %d", n)
	}
}

func TestDefaultClassifier(t *testing.T) {
	c := DefaultClassifier()
	if c.Classify("hello world") != ScriptLatin {
		t.Error("expected Latin classification")
	}
	if c.Classify("こんにちは") != ScriptCJK {
		t.Error("expected CJK classification")
	}
	if c.Classify("สวัสดี") != ScriptThaiLaoKhmer {
		t.Error("expected Thai/Lao/Khmer classification")
	}
}

func TestRunToSRT(t *testing.T) {
	segs := []core.Segment{
		{Index: 1, Start: 0.75, End: 2.75, OriginalText: "Hello world"},
	}
	srt := RunToSRT(segs, Options{Thresholds: core.DefaultThresholds()}, subtitle.TextOriginal)
	if srt == "" {
		t.Fatal("expected non-empty SRT")
	}
}
