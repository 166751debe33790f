package finalize

import (
	"strings"

	"github.com/subtitlepipe/core/internal/core"
)

// enforceDurationFloor implements spec §4.7 step 4: a too-short segment
// borrows time from the gap to its neighbors, in place, never exceeding
// MaxDurSec and never violating MinGapSec with either neighbor.
func enforceDurationFloor(segments []core.Segment, th core.Thresholds) {
	for i := range segments {
		growToward(segments, i, th.MinDurSec, th.MaxDurSec, th.MinGapSec)
	}
}

// growToward extends segments[i] until its duration reaches minDur (or the
// available slack runs out), borrowing from the gap to the next segment
// first, then the gap to the previous one.
func growToward(segments []core.Segment, i int, minDur, maxDur, minGap float64) {
	s := &segments[i]
	if s.Duration() >= minDur {
		return
	}

	if i+1 < len(segments) {
		next := &segments[i+1]
		maxEnd := next.Start - minGap
		want := s.Start + minDur
		if want > maxEnd {
			want = maxEnd
		}
		if ceiling := s.Start + maxDur; want > ceiling {
			want = ceiling
		}
		if want > s.End {
			s.End = want
		}
	}

	if s.Duration() >= minDur {
		return
	}

	if i > 0 {
		prev := &segments[i-1]
		minStart := prev.End + minGap
		want := s.End - minDur
		if want < minStart {
			want = minStart
		}
		if floor := s.End - maxDur; want < floor {
			want = floor
		}
		if want < s.Start {
			s.Start = want
		}
	}
}

// enforceCPSCeiling implements spec §4.7 step 5. It may change the segment
// count: a successful neighbor merge removes one segment, an unavoidable
// split adds one.
func enforceCPSCeiling(segments []core.Segment, th core.Thresholds, classifier CPSClassifier) []core.Segment {
	out := make([]core.Segment, len(segments))
	copy(out, segments)

	for i := 0; i < len(out); i++ {
		ceiling := cpsCap(cpsThresholds{CPSLatin: th.CPSLatin, CPSCJK: th.CPSCJK, CPSThai: th.CPSThai}, classifier.Classify(out[i].OriginalText))
		if cps(out[i]) <= ceiling {
			continue
		}

		growForCPS(out, i, ceiling, th.MaxDurSec, th.MinGapSec)
		if cps(out[i]) <= ceiling {
			continue
		}

		if merged, ok := tryMergeForLowerCPS(out, i, ceiling); ok {
			out = merged
			continue
		}

		out = splitSegment(out, i, th.MinGapSec)
	}

	return out
}

// growForCPS repeatedly borrows gap time to push a segment's CPS under cap,
// stopping once neighbors have no more slack to give or MaxDurSec is hit.
func growForCPS(segments []core.Segment, i int, ceiling, maxDur, minGap float64) {
	for iter := 0; iter < 20; iter++ {
		s := segments[i]
		if cps(s) <= ceiling || s.Duration() >= maxDur {
			return
		}
		before := s.Duration()
		growToward(segments, i, s.Duration()+0.25, maxDur, minGap)
		if segments[i].Duration() <= before {
			return // no more slack
		}
	}
}

func cps(s core.Segment) float64 {
	d := s.Duration()
	if d <= 0 {
		return 0
	}
	return float64(len([]rune(s.OriginalText))) / d
}

// tryMergeForLowerCPS merges segment i with whichever neighbor yields the
// lower resulting CPS, if that CPS improves on the original.
func tryMergeForLowerCPS(segments []core.Segment, i int, ceiling float64) ([]core.Segment, bool) {
	orig := cps(segments[i])

	candidates := []int{}
	if i > 0 {
		candidates = append(candidates, i-1)
	}
	if i+1 < len(segments) {
		candidates = append(candidates, i+1)
	}
	if len(candidates) == 0 {
		return nil, false
	}

	bestCPS := orig
	bestNeighbor := -1
	for _, n := range candidates {
		merged := mergeAdjacent(segments[minInt(n, i)], segments[maxInt(n, i)])
		if c := cps(merged); c < bestCPS {
			bestCPS = c
			bestNeighbor = n
		}
	}
	if bestNeighbor < 0 {
		return nil, false
	}

	lo, hi := minInt(bestNeighbor, i), maxInt(bestNeighbor, i)
	merged := mergeAdjacent(segments[lo], segments[hi])

	out := make([]core.Segment, 0, len(segments)-1)
	out = append(out, segments[:lo]...)
	out = append(out, merged)
	out = append(out, segments[hi+1:]...)
	return out, true
}

func mergeAdjacent(a, b core.Segment) core.Segment {
	merged := a
	merged.End = b.End
	merged.OriginalText = core.NormalizeText(a.OriginalText + " " + b.OriginalText)
	if b.TranslatedText != "" {
		merged.TranslatedText = core.NormalizeText(a.TranslatedText + " " + b.TranslatedText)
	}
	merged.Words = append(append([]core.Word{}, a.Words...), b.Words...)
	return merged
}

// splitSegment breaks an over-dense segment at the space nearest its
// character midpoint, apportioning duration by character share and
// preserving MinGapSec with neighbors. Punctuation is not a split point on
// its own, and text without spaces is left unsplit.
func splitSegment(segments []core.Segment, i int, minGap float64) []core.Segment {
	s := segments[i]
	text := s.OriginalText
	cut := splitPoint(text)
	if cut <= 0 || cut >= len(text) {
		return segments
	}

	left := strings.TrimSpace(text[:cut])
	right := strings.TrimSpace(text[cut:])
	if left == "" || right == "" {
		return segments
	}

	share := float64(len([]rune(left))) / float64(len([]rune(text)))
	mid := s.Start + s.Duration()*share

	leftSeg := s
	leftSeg.OriginalText = left
	leftSeg.End = mid

	rightSeg := s
	rightSeg.OriginalText = right
	rightSeg.Start = mid + minGap
	rightSeg.Words = nil
	leftSeg.Words = nil

	if rightSeg.Start >= rightSeg.End {
		return segments
	}

	out := make([]core.Segment, 0, len(segments)+1)
	out = append(out, segments[:i]...)
	out = append(out, leftSeg, rightSeg)
	out = append(out, segments[i+1:]...)
	return out
}

// splitPoint finds the whitespace index nearest the string's rune midpoint.
func splitPoint(text string) int {
	runes := []rune(text)
	mid := len(runes) / 2
	for radius := 0; radius < len(runes); radius++ {
		if mid-radius >= 0 && runes[mid-radius] == ' ' {
			return len(string(runes[:mid-radius]))
		}
		if mid+radius < len(runes) && runes[mid+radius] == ' ' {
			return len(string(runes[:mid+radius]))
		}
	}
	return -1
}

// enforceGapFloor implements spec §4.7 step 6.
func enforceGapFloor(segments []core.Segment, minGap, minLen float64) {
	for i := 1; i < len(segments); i++ {
		prev := &segments[i-1]
		cur := &segments[i]
		if cur.Start-prev.End >= minGap {
			continue
		}
		cur.Start = prev.End + minGap
		if cur.End-cur.Start < minLen {
			cur.End = cur.Start + minLen
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
