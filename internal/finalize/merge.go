package finalize

import (
	"regexp"

	"github.com/subtitlepipe/core/internal/core"
)

var terminalPunctuation = regexp.MustCompile(`[.!?…]\s*$`)

// tinyTailMerge implements spec §4.7 step 2: a short trailing fragment that
// directly continues the previous segment's sentence gets folded into it.
func tinyTailMerge(segments []core.Segment, maxGapSec float64) []core.Segment {
	return mergeWhile(segments, maxGapSec, func(prev, cur core.Segment, gap float64) bool {
		return len(tokenize(cur.OriginalText)) <= 2 &&
			gap <= maxGapSec &&
			!terminalPunctuation.MatchString(prev.OriginalText)
	})
}

// denseShortMerge implements spec §4.7 step 3: a too-short, too-dense
// segment is absorbed into the previous one rather than flashing by unread.
func denseShortMerge(segments []core.Segment, maxGapSec, cpsThreshold float64) []core.Segment {
	return mergeWhile(segments, maxGapSec, func(prev, cur core.Segment, gap float64) bool {
		dur := cur.Duration()
		if dur <= 0 {
			return false
		}
		cps := float64(len([]rune(cur.OriginalText))) / dur
		return dur < 0.8 && cps > cpsThreshold && gap <= maxGapSec
	})
}

// mergeWhile scans adjacent pairs once, left to right, merging cur into the
// running "prev" accumulator whenever shouldMerge holds.
func mergeWhile(segments []core.Segment, maxGapSec float64, shouldMerge func(prev, cur core.Segment, gap float64) bool) []core.Segment {
	if len(segments) == 0 {
		return segments
	}

	out := make([]core.Segment, 0, len(segments))
	out = append(out, segments[0])

	for i := 1; i < len(segments); i++ {
		prev := &out[len(out)-1]
		cur := segments[i]
		gap := cur.Start - prev.End

		if shouldMerge(*prev, cur, gap) {
			prev.End = cur.End
			prev.OriginalText = core.NormalizeText(prev.OriginalText + " " + cur.OriginalText)
			if cur.TranslatedText != "" {
				prev.TranslatedText = core.NormalizeText(prev.TranslatedText + " " + cur.TranslatedText)
			}
			prev.Words = append(prev.Words, cur.Words...)
			continue
		}
		out = append(out, cur)
	}
	return out
}
