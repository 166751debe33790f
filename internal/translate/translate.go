// Package translate implements TranslatePass (C6): batches segments into
// fixed-size groups, asks the provider to translate each batch's lines
// using a small window of untranslated context, and — in quality mode —
// runs a second review pass over sliding windows of the translated output.
package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/subtitlepipe/core/internal/apierr"
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/lang"
	"github.com/subtitlepipe/core/internal/provider"
)

// TranslationMarker flags a segment whose translated line was missing from
// the model's response; it is never shown to end users, only logged for
// debugging (spec §4.6).
const TranslationMarker = "###TRANSLATION_MARKER###"

// Retry policy mirrors §4.4's provider retry policy (base 2s, cap 10s, 3
// attempts), reused rather than redefined for batch-level retries.
var retryConfig = apierr.RetryConfig{
	MaxRetries: 2, // 3 attempts in all: the first call plus 2 retries
	BaseDelay:  2 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Completer is the subset of provider.Client this pass depends on.
type Completer interface {
	CompleteText(ctx context.Context, messages []provider.Message, opts provider.CompleteOptions) (string, error)
}

// Options configures a Pass run.
type Options struct {
	TargetLanguage lang.Language
	Model          string
	BatchSize      int // default 10
	ContextBefore  int // default 3
	ContextAfter   int // default 3
	FanOut         int // default 4
	OnProgress     func(done, total int)
	OnDebug        func(msg string)
}

// Pass runs TranslatePass.
type Pass struct {
	completer Completer
}

// New creates a Pass bound to a completion-capable provider.
func New(completer Completer) *Pass {
	return &Pass{completer: completer}
}

// Translate fills TranslatedText on every segment. When target language is
// zero-value ("original"), it is a no-op (spec §4.6).
func (p *Pass) Translate(ctx context.Context, segments []core.Segment, opts Options) ([]core.Segment, error) {
	if opts.TargetLanguage.IsZero() || opts.TargetLanguage.IsOriginal() {
		return segments, nil
	}
	if len(segments) == 0 {
		return segments, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	fanOut := opts.FanOut
	if fanOut <= 0 {
		fanOut = 4
	}
	if opts.ContextBefore <= 0 {
		opts.ContextBefore = 3
	}
	if opts.ContextAfter <= 0 {
		opts.ContextAfter = 3
	}

	out := make([]core.Segment, len(segments))
	copy(out, segments)

	batches := splitBatches(out, batchSize)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, fanOut)
	var mu sync.Mutex
	var done int

	for _, b := range batches {
		b := b
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			translateBatch(gctx, p.completer, out, b, opts)

			mu.Lock()
			done++
			if opts.OnProgress != nil {
				opts.OnProgress(done, len(batches))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// batch is a contiguous slice of `out`'s indices to translate together.
type batch struct {
	start, end int // [start, end) indices into the segment slice
}

func splitBatches(segments []core.Segment, size int) []batch {
	var batches []batch
	for i := 0; i < len(segments); i += size {
		end := min(i+size, len(segments))
		batches = append(batches, batch{start: i, end: end})
	}
	return batches
}

// translateBatch translates segments[b.start:b.end] in place on segments,
// falling back to the original text for any line the model's response
// doesn't account for (spec §4.6's non-fatal degradation contract).
func translateBatch(ctx context.Context, completer Completer, segments []core.Segment, b batch, opts Options) {
	prompt := buildBatchPrompt(segments, b, opts)

	response, err := apierr.RetryWithBackoff(ctx, retryConfig, func() (string, error) {
		return completer.CompleteText(ctx, []provider.Message{
			{Role: "system", Content: translateSystemPrompt(opts.TargetLanguage)},
			{Role: "user", Content: prompt},
		}, provider.CompleteOptions{Model: opts.Model})
	}, apierr.Transient)

	if err != nil {
		if opts.OnDebug != nil {
			opts.OnDebug(fmt.Sprintf("%s batch [%d,%d) translation failed, preserving originals: %v", TranslationMarker, b.start, b.end, err))
		}
		for i := b.start; i < b.end; i++ {
			segments[i].TranslatedText = segments[i].OriginalText
		}
		return
	}

	translations := parseLines(response)
	for i := b.start; i < b.end; i++ {
		absoluteIndex := segments[i].Index
		if text, ok := translations[absoluteIndex]; ok {
			segments[i].TranslatedText = text
		} else {
			segments[i].TranslatedText = segments[i].OriginalText
			if opts.OnDebug != nil {
				opts.OnDebug(fmt.Sprintf("%s line %d missing from response, preserved original", TranslationMarker, absoluteIndex))
			}
		}
	}
}

func translateSystemPrompt(target lang.Language) string {
	return fmt.Sprintf(
		"Translate the labeled lines into %s. Respond with exactly one line per "+
			"input line, each formatted as \"Line N: <translation>\" using the same "+
			"N. Use the surrounding context lines only to disambiguate meaning; do "+
			"not translate or repeat them back.",
		target.DisplayName(),
	)
}

// buildBatchPrompt renders the BEFORE_CTX/AFTER_CTX context window (plain,
// untranslated) and the batch's own "Line N: <text>" lines (spec §4.6).
func buildBatchPrompt(segments []core.Segment, b batch, opts Options) string {
	before := opts.ContextBefore
	after := opts.ContextAfter

	var sb strings.Builder
	ctxStart := max(0, b.start-before)
	if ctxStart < b.start {
		sb.WriteString("Context before (do not translate):\n")
		for i := ctxStart; i < b.start; i++ {
			fmt.Fprintf(&sb, "Line %d: %s\n", segments[i].Index, segments[i].OriginalText)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Translate these lines:\n")
	for i := b.start; i < b.end; i++ {
		fmt.Fprintf(&sb, "Line %d: %s\n", segments[i].Index, segments[i].OriginalText)
	}

	ctxEnd := min(len(segments), b.end+after)
	if ctxEnd > b.end {
		sb.WriteString("\nContext after (do not translate):\n")
		for i := b.end; i < ctxEnd; i++ {
			fmt.Fprintf(&sb, "Line %d: %s\n", segments[i].Index, segments[i].OriginalText)
		}
	}

	return sb.String()
}

var lineRe = regexp.MustCompile(`(?m)^Line\s+(\d+):\s?(.*)$`)

// parseLines extracts {absoluteIndex: translation} pairs from the model's
// response.
func parseLines(response string) map[int]string {
	out := map[int]string{}
	for _, m := range lineRe.FindAllStringSubmatch(response, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out[n] = strings.TrimSpace(m[2])
	}
	return out
}
