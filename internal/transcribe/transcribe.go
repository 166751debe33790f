// Package transcribe implements TranscribePass (C5): it turns a prepared
// audio file (direct) or a list of chunks (chunked) into a single flat,
// ordered Vec<Segment>, applying the rolling prompt context, quality-mode
// concurrency policy, and hallucination filter spec §4.5 describes.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/subtitlepipe/core/internal/apierr"
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/ffmpeg"
	"github.com/subtitlepipe/core/internal/lang"
	"github.com/subtitlepipe/core/internal/provider"
)

// MaxPromptChars bounds the rolling prompt context (spec §4.5).
const MaxPromptChars = 224

// minSegmentsBeforePrompt: the prompt is omitted until this many segments
// have accumulated, to avoid biasing the opening (spec §4.5).
const minSegmentsBeforePrompt = 5

// ParallelFanOut is the default concurrency for quality=false (spec §4.5).
const ParallelFanOut = 5

// Transcriber is the subset of provider.Client this pass depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts provider.TranscribeOptions) (provider.TranscriptionResult, error)
}

// Options configures a Pass run.
type Options struct {
	FfmpegPath string
	OpId       string
	Language   lang.Language
	Quality    bool // true: sequential, with a rolling prompt context
	FanOut     int  // parallel fan-out when !Quality; defaults to ParallelFanOut
	OnProgress func(done, total int)
}

// chunkExtractorFunc extracts one chunk's audio span, returning its path and
// a cleanup func. Injectable so tests don't need a real ffmpeg binary.
type chunkExtractorFunc func(ctx context.Context, ffmpegPath, sourceAudio string, chunk core.Chunk) (string, func(), error)

// Pass runs TranscribePass.
type Pass struct {
	client  Transcriber
	extract chunkExtractorFunc
}

// PassOption configures a Pass.
type PassOption func(*Pass)

// WithChunkExtractor overrides chunk audio extraction (for testing).
func WithChunkExtractor(fn chunkExtractorFunc) PassOption {
	return func(p *Pass) { p.extract = fn }
}

// New creates a Pass bound to a provider client.
func New(client Transcriber, opts ...PassOption) *Pass {
	p := &Pass{client: client, extract: extractChunkAudio}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Direct transcribes audioPath in one call (spec §4.5's direct strategy;
// used only when routing, §4.4, permits).
func (p *Pass) Direct(ctx context.Context, audioPath string, opts Options) ([]core.Segment, error) {
	result, err := p.client.Transcribe(ctx, audioPath, provider.TranscribeOptions{
		Language:       opts.Language,
		IdempotencyKey: opts.OpId,
	})
	if err != nil {
		return nil, err
	}
	segments := result.Segments
	segments = filterHallucinations(segments)
	return core.Reindex(segments), nil
}

// Chunked transcribes each chunk from VADChunker, shifting timestamps by the
// chunk's start, applying the rolling prompt context, and honoring the
// quality-mode concurrency policy (spec §4.5).
func (p *Pass) Chunked(ctx context.Context, sourceAudio string, chunks []core.Chunk, opts Options) ([]core.Segment, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	fanOut := opts.FanOut
	if fanOut <= 0 {
		fanOut = ParallelFanOut
	}
	if opts.Quality {
		return p.transcribeSequential(ctx, sourceAudio, chunks, opts)
	}
	return p.transcribeParallel(ctx, sourceAudio, chunks, opts, fanOut)
}

// transcribeSequential runs one chunk at a time (quality=true, concurrency
// 1); each chunk's prompt context is promptFrom over the text of every
// segment transcribed so far, across all earlier chunks, not only the
// immediately preceding one.
func (p *Pass) transcribeSequential(ctx context.Context, sourceAudio string, chunks []core.Chunk, opts Options) ([]core.Segment, error) {
	var all []core.Segment
	var rolling []string

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		segments, cleanup, err := p.transcribeOneChunk(ctx, sourceAudio, chunk, opts, promptFrom(rolling))
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			if errors.Is(err, apierr.ErrInsufficientCredits) {
				return nil, err
			}
			if opts.OnProgress != nil {
				opts.OnProgress(i+1, len(chunks))
			}
			continue
		}

		all = append(all, segments...)
		for _, s := range segments {
			rolling = append(rolling, s.OriginalText)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(chunks))
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return core.Reindex(filterHallucinations(all)), nil
}

// transcribeParallel fans out up to fanOut chunks concurrently
// (quality=false). Partial chunk failures are skipped without being logged;
// only ErrInsufficientCredits aborts the whole pass (spec §4.5).
func (p *Pass) transcribeParallel(ctx context.Context, sourceAudio string, chunks []core.Chunk, opts Options, fanOut int) ([]core.Segment, error) {
	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, fanOut)
	results := make([][]core.Segment, len(chunks))

	var mu sync.Mutex
	var doneCount int

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			segments, cleanup, err := p.transcribeOneChunk(ctx, sourceAudio, chunk, opts, "")
			if cleanup != nil {
				defer cleanup()
			}
			if err != nil {
				if errors.Is(err, apierr.ErrInsufficientCredits) {
					return fmt.Errorf("chunk %d: %w", chunk.Index, err)
				}
				mu.Lock()
				doneCount++
				if opts.OnProgress != nil {
					opts.OnProgress(doneCount, len(chunks))
				}
				mu.Unlock()
				return nil
			}

			mu.Lock()
			results[i] = segments
			doneCount++
			if opts.OnProgress != nil {
				opts.OnProgress(doneCount, len(chunks))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []core.Segment
	for _, segments := range results {
		all = append(all, segments...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return core.Reindex(filterHallucinations(all)), nil
}

// transcribeOneChunk extracts, transcribes and shifts a single chunk's
// segments. The returned cleanup func removes the chunk's temp audio file
// (spec §4.5's cancellation/cleanup contract).
func (p *Pass) transcribeOneChunk(ctx context.Context, sourceAudio string, chunk core.Chunk, opts Options, prompt string) ([]core.Segment, func(), error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	chunkPath, cleanup, err := p.extract(ctx, opts.FfmpegPath, sourceAudio, chunk)
	if err != nil {
		return nil, nil, err
	}

	if ctx.Err() != nil {
		return nil, cleanup, ctx.Err()
	}

	result, err := p.client.Transcribe(ctx, chunkPath, provider.TranscribeOptions{
		PromptContext:  prompt,
		Language:       opts.Language,
		IdempotencyKey: fmt.Sprintf("%s-chunk-%d", opts.OpId, chunk.Index),
	})
	if err != nil {
		return nil, cleanup, err
	}

	if ctx.Err() != nil {
		return nil, cleanup, ctx.Err()
	}

	shifted := make([]core.Segment, len(result.Segments))
	for i, s := range result.Segments {
		s.Start += chunk.Start
		s.End += chunk.Start
		for w := range s.Words {
			s.Words[w].Start += chunk.Start
			s.Words[w].End += chunk.Start
		}
		shifted[i] = s
	}
	return shifted, cleanup, nil
}

// promptFrom builds the rolling prompt context: the concatenated text of
// previously-transcribed segments, trimmed to MaxPromptChars from the tail,
// omitted until minSegmentsBeforePrompt segments have accumulated.
func promptFrom(previous []string) string {
	if len(previous) < minSegmentsBeforePrompt {
		return ""
	}
	joined := strings.Join(previous, " ")
	if len(joined) <= MaxPromptChars {
		return joined
	}
	return joined[len(joined)-MaxPromptChars:]
}

// filterHallucinations drops segments the spec's hallucination heuristic
// flags, plus any empty-text segment (spec §4.5).
func filterHallucinations(segments []core.Segment) []core.Segment {
	out := make([]core.Segment, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.OriginalText) == "" {
			continue
		}
		if s.NoSpeechProb >= 0.92 && s.AvgLogprob <= -1.3 && speechOverlap(s) < 0.15 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// speechOverlap approximates the fraction of the segment's span actually
// covered by word-level timestamps; segments with no word timing are
// treated conservatively as fully overlapping so only genuinely
// unsubstantiated spans get filtered.
func speechOverlap(s core.Segment) float64 {
	if len(s.Words) == 0 {
		return 1.0
	}
	span := s.End - s.Start
	if span <= 0 {
		return 1.0
	}
	var covered float64
	for _, w := range s.Words {
		covered += w.End - w.Start
	}
	if covered > span {
		return 1.0
	}
	return covered / span
}

// extractChunkAudio extracts chunk's audio span into a temp file the caller
// must clean up via the returned func.
func extractChunkAudio(ctx context.Context, ffmpegPath, sourceAudio string, chunk core.Chunk) (string, func(), error) {
	path := fmt.Sprintf("%s.chunk-%d.wav", sourceAudio, chunk.Index)
	if err := ffmpeg.ExtractAudioSegment(ctx, ffmpegPath, sourceAudio, path, chunk.Start, chunk.Duration()); err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}
