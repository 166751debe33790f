// Package overlay implements OverlayRenderer (C8): burns or overlays a
// finalized subtitle track onto a source video via ffmpeg, in one of two
// modes (spec §4.8).
package overlay

import (
	"sort"

	"github.com/subtitlepipe/core/internal/subtitle"
)

// Event is a single subtitle-state transition: the text shown starting at
// TimeMs, until the next event's TimeMs (or VideoDurationMs for the last).
type Event struct {
	TimeMs int64
	Text   string
}

// State is a materialized [Start, End) span showing a fixed piece of text,
// the unit both render modes iterate over (spec §4.8 "state derivation").
type State struct {
	StartMs int64
	EndMs   int64
	Text    string
}

// BuildStates parses a finalized SRT and derives the deduplicated,
// clamped, non-overlapping state timeline shared by both render modes.
func BuildStates(srt string, videoDurationMs int64) []State {
	segments, _ := subtitle.ParseSRT(srt)

	states := make([]State, 0, len(segments))
	for _, s := range segments {
		start, end := msFromSec(s.Start), min(msFromSec(s.End), videoDurationMs)
		if end > start && s.OriginalText != "" {
			states = append(states, State{StartMs: start, EndMs: end, Text: s.OriginalText})
		}
	}
	sort.SliceStable(states, func(i, j int) bool { return states[i].StartMs < states[j].StartMs })
	return mergeOverlappingStates(states)
}

func msFromSec(sec float64) int64 {
	return int64(sec*1000 + 0.5)
}

// sortAndDedupEvents sorts by (time, text) and removes exact duplicates.
func sortAndDedupEvents(events []Event) []Event {
	sort.Slice(events, func(i, j int) bool {
		if events[i].TimeMs != events[j].TimeMs {
			return events[i].TimeMs < events[j].TimeMs
		}
		return events[i].Text < events[j].Text
	})

	out := events[:0]
	for i, e := range events {
		if i > 0 && e == events[i-1] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// eventsToStates turns a sorted, deduped event list into non-overlapping
// states: overlapping same-text cues merge, overlapping different-text
// cues have the later start pulled forward to the earlier end (no overlap
// is ever rendered), and every end is clamped to the video duration.
func eventsToStates(events []Event, videoDurationMs int64) []State {
	var states []State
	for i := 0; i < len(events)-1; i++ {
		e := events[i]
		if e.Text == "" {
			continue
		}
		end := events[i+1].TimeMs
		if end > videoDurationMs {
			end = videoDurationMs
		}
		if end <= e.TimeMs {
			continue
		}
		states = append(states, State{StartMs: e.TimeMs, EndMs: end, Text: e.Text})
	}
	return mergeOverlappingStates(states)
}

func mergeOverlappingStates(states []State) []State {
	if len(states) == 0 {
		return states
	}
	out := make([]State, 0, len(states))
	out = append(out, states[0])

	for i := 1; i < len(states); i++ {
		last := &out[len(out)-1]
		cur := states[i]

		if cur.StartMs >= last.EndMs {
			out = append(out, cur)
			continue
		}

		// Overlap.
		if cur.Text == last.Text {
			if cur.EndMs > last.EndMs {
				last.EndMs = cur.EndMs
			}
			continue
		}

		cur.StartMs = last.EndMs
		if cur.StartMs >= cur.EndMs {
			continue // fully subsumed, no overlap rendered
		}
		out = append(out, cur)
	}
	return out
}
