package provider

import (
	openai "github.com/sashabaranov/go-openai"

	"context"

	"github.com/subtitlepipe/core/internal/apierr"
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/lang"
)

// TranscribeOptions configures a single Transcribe call (spec §4.4).
type TranscribeOptions struct {
	PromptContext   string // rolling prompt context (spec §4.5)
	Language        lang.Language
	IdempotencyKey  string
	Tier            Tier
}

// TranscriptionResult is the pipeline-shaped result of a Transcribe call.
type TranscriptionResult struct {
	Segments []core.Segment
}

// Transcribe calls the transcription endpoint with verbose_json and
// word-level timestamps, which is where avg_logprob/no_speech_prob (used by
// the hallucination filter, spec §4.5) and per-word timing come from.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (TranscriptionResult, error) {
	tier := opts.Tier
	if tier == "" {
		tier = TierPrimaryRemote
	}
	cl, err := c.clientFor(tier)
	if err != nil {
		return TranscriptionResult{}, err
	}

	if opts.IdempotencyKey != "" {
		ctx = WithIdempotencyKey(ctx, opts.IdempotencyKey)
	}

	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   opts.PromptContext,
		Language: opts.Language.BaseCode(),
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	}

	resp, err := apierr.RetryWithBackoff(ctx, c.retryConfig, func() (openai.AudioResponse, error) {
		r, err := cl.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, classifyError(err)
		}
		return r, nil
	}, isRetryableError)
	if err != nil {
		return TranscriptionResult{}, err
	}

	return TranscriptionResult{Segments: mapSegments(resp)}, nil
}

// mapSegments converts go-openai's verbose_json segments/words into the
// pipeline's chunk-relative Segment list (unshifted; TranscribePass applies
// the chunk offset, spec §4.5).
func mapSegments(resp openai.AudioResponse) []core.Segment {
	words := make([]core.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, core.Word{Text: w.Word, Start: w.Start, End: w.End})
	}

	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil
		}
		return []core.Segment{{
			Index:        1,
			Start:        0,
			End:          resp.Duration,
			OriginalText: core.NormalizeText(resp.Text),
			Words:        words,
		}}
	}

	segments := make([]core.Segment, 0, len(resp.Segments))
	for i, s := range resp.Segments {
		segments = append(segments, core.Segment{
			Index:        i + 1,
			Start:        s.Start,
			End:          s.End,
			OriginalText: core.NormalizeText(s.Text),
			NoSpeechProb: s.NoSpeechProb,
			AvgLogprob:   s.AvgLogprob,
			Words:        wordsWithin(words, s.Start, s.End),
		})
	}
	return segments
}

// wordsWithin returns the subset of words whose span falls inside
// [start, end], attaching word-level timing to its owning segment.
func wordsWithin(words []core.Word, start, end float64) []core.Word {
	var out []core.Word
	for _, w := range words {
		if w.Start >= start && w.End <= end {
			out = append(out, w)
		}
	}
	return out
}
