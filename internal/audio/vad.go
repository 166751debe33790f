package audio

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/subtitlepipe/core/internal/core"
)

// VAD detection and chunking defaults (spec §4.3).
const (
	defaultNoiseDBVAD    = -50.0
	defaultMinSilenceSec = 0.5

	// MergeGapSec: successive intervals within this gap are merged (step 3).
	MergeGapSec = 0.6
	// MaxSpeechlessSec: voiced runs longer than this are split (step 4).
	MaxSpeechlessSec = 30.0
	// PrePadSec/PostPadSec: padding applied before grouping into chunks (step 5).
	PrePadSec  = 0.25
	PostPadSec = 0.5
	// MaxChunkDurationSec: an interval that would bring a chunk's span to
	// this duration or beyond starts a new chunk instead.
	MaxChunkDurationSec = 60.0
)

// VADChunker detects speech intervals in an audio file and groups them into
// bounded chunks ready for transcription (spec §4.3, C3).
type VADChunker struct {
	ffmpegPath string
	noiseDB    float64
	minSilence float64
	cmd        commandRunner
}

// VADChunkerOption configures a VADChunker.
type VADChunkerOption func(*VADChunker)

// WithVADNoiseDB overrides the silencedetect noise threshold (dB).
func WithVADNoiseDB(db float64) VADChunkerOption {
	return func(c *VADChunker) { c.noiseDB = db }
}

// WithVADMinSilence overrides the minimum silence duration (seconds).
func WithVADMinSilence(sec float64) VADChunkerOption {
	return func(c *VADChunker) { c.minSilence = sec }
}

// WithVADCommandRunner overrides the command runner (for testing).
func WithVADCommandRunner(r commandRunner) VADChunkerOption {
	return func(c *VADChunker) { c.cmd = r }
}

// NewVADChunker creates a VADChunker bound to the resolved ffmpeg binary.
func NewVADChunker(ffmpegPath string, opts ...VADChunkerOption) *VADChunker {
	c := &VADChunker{
		ffmpegPath: ffmpegPath,
		noiseDB:    defaultNoiseDBVAD,
		minSilence: defaultMinSilenceSec,
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk runs the full detect→normalize→merge→split→pad/group pipeline
// against audioPath and returns the resulting chunks, covering all
// detected speech (spec §4.3 steps 1-6).
func (c *VADChunker) Chunk(ctx context.Context, audioPath string, duration float64) ([]core.Chunk, error) {
	speechIntervals, err := c.detectSpeech(ctx, audioPath, duration)
	if err != nil {
		return nil, err
	}

	normalized := normalize(speechIntervals, duration)
	if len(normalized) == 0 {
		return nil, nil // spec §4.3 step 6: zero speech → empty chunk list
	}

	merged := merge(normalized)
	split := splitLongRuns(merged)
	return padAndGroup(split, duration), nil
}

// detectSpeech invokes ffmpeg silencedetect and inverts the reported silence
// intervals into speech intervals (spec §4.3 step 1).
func (c *VADChunker) detectSpeech(ctx context.Context, audioPath string, duration float64) ([]core.SpeechInterval, error) {
	args := []string{
		"-i", audioPath,
		"-af", fmt.Sprintf("silencedetect=noise=%gdB:d=%g", c.noiseDB, c.minSilence),
		"-f", "null",
		"-",
	}
	output, err := c.cmd.CombinedOutput(ctx, c.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrChunkingFailed, err)
	}

	silences := parseSilencePoints(string(output))
	return invertSilences(silences, duration), nil
}

type silencePoint struct {
	start, end float64
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// parseSilencePoints extracts silence_start/silence_end pairs from
// ffmpeg's silencedetect stderr output.
func parseSilencePoints(output string) []silencePoint {
	var silences []silencePoint
	var start float64
	hasStart := false

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start = v
				hasStart = true
			}
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && hasStart {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				silences = append(silences, silencePoint{start: start, end: v})
				hasStart = false
			}
		}
	}
	return silences
}

// invertSilences turns a sorted list of silence gaps into the complementary
// speech intervals spanning [0, duration].
func invertSilences(silences []silencePoint, duration float64) []core.SpeechInterval {
	sort.Slice(silences, func(i, j int) bool { return silences[i].start < silences[j].start })

	var speech []core.SpeechInterval
	cursor := 0.0
	for _, s := range silences {
		if iv, ok := core.NewSpeechInterval(cursor, s.start, duration); ok {
			speech = append(speech, iv)
		}
		if s.end > cursor {
			cursor = s.end
		}
	}
	if iv, ok := core.NewSpeechInterval(cursor, duration, duration); ok {
		speech = append(speech, iv)
	}
	return speech
}

// normalize clamps, rounds and sorts raw intervals (spec §4.3 step 2). Raw
// intervals already pass through core.NewSpeechInterval's clamp/round/reject
// logic in invertSilences; normalize re-sorts in case of equal-cursor ties.
func normalize(intervals []core.SpeechInterval, duration float64) []core.SpeechInterval {
	out := make([]core.SpeechInterval, 0, len(intervals))
	for _, iv := range intervals {
		if norm, ok := core.NewSpeechInterval(iv.Start, iv.End, duration); ok {
			out = append(out, norm)
		}
	}
	core.SortIntervals(out)
	return out
}

// merge combines successive intervals whose gap is within MergeGapSec
// (spec §4.3 step 3).
func merge(intervals []core.SpeechInterval) []core.SpeechInterval {
	if len(intervals) == 0 {
		return nil
	}
	out := []core.SpeechInterval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		if iv.Start-last.End <= MergeGapSec {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// splitLongRuns cuts any interval longer than MaxSpeechlessSec into equal
// sub-intervals of that maximum length (spec §4.3 step 4).
func splitLongRuns(intervals []core.SpeechInterval) []core.SpeechInterval {
	var out []core.SpeechInterval
	for _, iv := range intervals {
		length := iv.End - iv.Start
		if length <= MaxSpeechlessSec {
			out = append(out, iv)
			continue
		}
		n := int(length / MaxSpeechlessSec)
		if length-float64(n)*MaxSpeechlessSec > 1e-9 {
			n++
		}
		step := length / float64(n)
		for i := 0; i < n; i++ {
			start := iv.Start + float64(i)*step
			end := start + step
			if i == n-1 {
				end = iv.End
			}
			out = append(out, core.SpeechInterval{Start: start, End: end})
		}
	}
	return out
}

// padAndGroup pads every interval by PrePadSec/PostPadSec then accumulates
// padded intervals into chunks. When adding the next padded interval would
// make the chunk span MaxChunkDurationSec or more, the current chunk is
// closed first and that interval starts the next one (spec §4.3 step 5).
func padAndGroup(intervals []core.SpeechInterval, duration float64) []core.Chunk {
	if len(intervals) == 0 {
		return nil
	}

	var chunks []core.Chunk
	chunkStart := clampPad(intervals[0].Start-PrePadSec, duration)
	chunkEnd := clampPad(intervals[0].End+PostPadSec, duration)

	flush := func() {
		chunks = append(chunks, core.Chunk{Start: chunkStart, End: chunkEnd})
	}

	for _, iv := range intervals[1:] {
		padStart := clampPad(iv.Start-PrePadSec, duration)
		padEnd := clampPad(iv.End+PostPadSec, duration)

		if padEnd-chunkStart >= MaxChunkDurationSec {
			flush()
			chunkStart = padStart
			chunkEnd = padEnd
			continue
		}
		chunkEnd = padEnd
	}
	if chunkEnd > chunkStart {
		flush()
	}

	for i := range chunks {
		chunks[i].Index = i + 1
	}
	return chunks
}

func clampPad(v, duration float64) float64 {
	if v < 0 {
		return 0
	}
	if v > duration {
		return duration
	}
	return v
}
