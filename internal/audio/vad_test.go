package audio

import (
	"context"
	"testing"

	"github.com/subtitlepipe/core/internal/core"
)

type fakeCommandRunner struct {
	output []byte
	err    error
}

func (f fakeCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	return f.output, f.err
}

func TestVADChunker_EmptySpeech(t *testing.T) {
	runner := fakeCommandRunner{output: []byte(
		"[silencedetect @ 0x0] silence_start: 0\n" +
			"[silencedetect @ 0x0] silence_end: 30 | silence_duration: 30\n",
	)}
	c := NewVADChunker("ffmpeg", WithVADCommandRunner(runner))

	chunks, err := c.Chunk(context.Background(), "audio.wav", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for all-silence audio, got %d", len(chunks))
	}
}

func TestVADChunker_SinglePaddedInterval(t *testing.T) {
	// Silence everywhere except [1.0, 3.0], on a 5s clip.
	runner := fakeCommandRunner{output: []byte(
		"[silencedetect @ 0x0] silence_start: 0\n" +
			"[silencedetect @ 0x0] silence_end: 1.0\n" +
			"[silencedetect @ 0x0] silence_start: 3.0\n" +
			"[silencedetect @ 0x0] silence_end: 5.0\n",
	)}
	c := NewVADChunker("ffmpeg", WithVADCommandRunner(runner))

	chunks, err := c.Chunk(context.Background(), "audio.wav", 5.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	got := chunks[0]
	if got.Start != 0.75 || got.End != 3.5 {
		t.Fatalf("expected [0.75, 3.5], got [%v, %v]", got.Start, got.End)
	}
	if got.Index != 1 {
		t.Fatalf("expected 1-based index, got %d", got.Index)
	}
}

func TestMerge(t *testing.T) {
	in := []core.SpeechInterval{
		{Start: 0, End: 1},
		{Start: 1.3, End: 2}, // gap 0.3 <= MergeGapSec
		{Start: 5, End: 6},   // gap 3.0 > MergeGapSec
	}
	out := merge(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 merged intervals, got %d", len(out))
	}
	if out[0].Start != 0 || out[0].End != 2 {
		t.Fatalf("expected merged [0,2], got %+v", out[0])
	}
}

func TestSplitLongRuns(t *testing.T) {
	in := []core.SpeechInterval{{Start: 0, End: 65}}
	out := splitLongRuns(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 sub-intervals for a 65s run, got %d", len(out))
	}
	for _, iv := range out {
		if iv.End-iv.Start > MaxSpeechlessSec+1e-6 {
			t.Fatalf("sub-interval exceeds MaxSpeechlessSec: %+v", iv)
		}
	}
	if out[len(out)-1].End != 65 {
		t.Fatalf("expected last sub-interval to end at original end, got %v", out[len(out)-1].End)
	}
}
