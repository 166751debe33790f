package finalize

import (
	"strings"

	"github.com/subtitlepipe/core/internal/core"
)

const jaccardBlankThreshold = 0.9

// dedupAndGapRepair implements spec §4.7 step 1: trims leading tokens of a
// segment that duplicate the previous segment's trailing tokens, blanks
// near-duplicate segments, and drops the resulting empties.
func dedupAndGapRepair(segments []core.Segment) []core.Segment {
	if len(segments) == 0 {
		return segments
	}

	out := make([]core.Segment, len(segments))
	copy(out, segments)

	lastNonEmpty := -1
	for i := range out {
		if lastNonEmpty < 0 {
			if out[i].OriginalText != "" {
				lastNonEmpty = i
			}
			continue
		}

		prevTokens := tokenize(out[lastNonEmpty].OriginalText)
		curTokens := tokenize(out[i].OriginalText)

		minOverlap := 2
		if len(curTokens) <= 2 {
			minOverlap = 1
		}

		if n := suffixPrefixOverlap(prevTokens, curTokens); n >= minOverlap {
			out[i].OriginalText = core.NormalizeText(strings.Join(curTokens[n:], " "))
			curTokens = curTokens[n:]
		}

		if jaccardSimilarity(prevTokens, curTokens) >= jaccardBlankThreshold {
			out[i].OriginalText = ""
		}

		if out[i].OriginalText != "" {
			lastNonEmpty = i
		}
	}

	return collapseEmpty(out)
}

func collapseEmpty(segments []core.Segment) []core.Segment {
	out := segments[:0]
	for _, s := range segments {
		if s.OriginalText != "" {
			out = append(out, s)
		}
	}
	return out
}
