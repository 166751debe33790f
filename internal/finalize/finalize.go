// Package finalize implements FinalizePass (C7): readability and timing
// normalization over a transcribed/translated segment stream, followed by
// SRT serialization (spec §4.7).
package finalize

import (
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/subtitle"
)

const minSegmentLenSec = 0.3
const maxFixedPointIterations = 3
const tinyTailMaxGapSec = 1.0
const denseShortMaxGapSec = 1.0

// Options configures a finalize run. Zero-value Options uses
// core.DefaultThresholds() and the default script classifier.
type Options struct {
	Thresholds core.Thresholds
	Classifier CPSClassifier
}

func (o Options) withDefaults() Options {
	if o.Classifier == nil {
		o.Classifier = DefaultClassifier()
	}
	if o.Thresholds == (core.Thresholds{}) {
		o.Thresholds = core.DefaultThresholds()
	}
	return o
}

// Run applies the full FinalizePass pipeline and returns the normalized,
// re-indexed segment list (spec §4.7 steps 1-7).
func Run(segments []core.Segment, opts Options) []core.Segment {
	opts = opts.withDefaults()
	th := opts.Thresholds

	out := make([]core.Segment, len(segments))
	copy(out, segments)

	out = dedupAndGapRepair(out)          // step 1
	out = tinyTailMerge(out, tinyTailMaxGapSec)                          // step 2
	out = denseShortMerge(out, denseShortMaxGapSec, th.CPSLatin)         // step 3

	for iter := 0; iter < maxFixedPointIterations; iter++ {
		before := snapshot(out)

		enforceDurationFloor(out, th)                    // step 4
		out = enforceCPSCeiling(out, th, opts.Classifier) // step 5
		enforceGapFloor(out, th.MinGapSec, minSegmentLenSec) // step 6
		out = core.Reindex(out)                           // step 7

		if snapshotsEqual(before, snapshot(out)) {
			break
		}
	}

	return out
}

// RunToSRT runs Run and serializes the result to SRT (spec §4.7's closing
// step: "Serialize to SRT").
func RunToSRT(segments []core.Segment, opts Options, mode subtitle.TextMode) string {
	return subtitle.SerializeSRT(Run(segments, opts), mode)
}

type fingerprint struct {
	start, end float64
	text       string
}

func snapshot(segments []core.Segment) []fingerprint {
	out := make([]fingerprint, len(segments))
	for i, s := range segments {
		out[i] = fingerprint{start: s.Start, end: s.End, text: s.OriginalText}
	}
	return out
}

func snapshotsEqual(a, b []fingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
