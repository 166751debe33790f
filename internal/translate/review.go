package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/subtitlepipe/core/internal/apierr"
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/lang"
	"github.com/subtitlepipe/core/internal/provider"
)

// Reviewer is the subset of provider.Client this pass depends on.
type Reviewer interface {
	Review(ctx context.Context, messages []provider.Message, opts provider.CompleteOptions) (string, error)
}

// ReviewOptions configures the optional review pass (spec §4.6, quality mode).
type ReviewOptions struct {
	TargetLanguage lang.Language
	Model          string
	WindowSize     int // default 30
	ContextBefore  int // default 15
	ContextAfter   int // default 15
	OnProgress     func(done, total int)
	OnDebug        func(msg string)
}

// ReviewPass runs the optional review pass, replacing each segment's
// translation with a reviewed version window by window. Review failures
// are non-fatal: a failed window keeps its pre-review translations.
type ReviewPass struct {
	reviewer Reviewer
}

// NewReviewPass creates a ReviewPass bound to a review-capable provider.
func NewReviewPass(reviewer Reviewer) *ReviewPass {
	return &ReviewPass{reviewer: reviewer}
}

func (p *ReviewPass) Review(ctx context.Context, segments []core.Segment, opts ReviewOptions) ([]core.Segment, error) {
	if len(segments) == 0 {
		return segments, nil
	}
	windowSize := opts.WindowSize
	if windowSize <= 0 {
		windowSize = 30
	}
	if opts.ContextBefore <= 0 {
		opts.ContextBefore = 15
	}
	if opts.ContextAfter <= 0 {
		opts.ContextAfter = 15
	}

	out := make([]core.Segment, len(segments))
	copy(out, segments)

	windows := splitBatches(out, windowSize)
	for i, w := range windows {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		p.reviewWindow(ctx, out, w, opts)
		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(windows))
		}
	}
	return out, nil
}

func (p *ReviewPass) reviewWindow(ctx context.Context, segments []core.Segment, w batch, opts ReviewOptions) {
	prompt := buildReviewPrompt(segments, w, opts)

	response, err := apierr.RetryWithBackoff(ctx, retryConfig, func() (string, error) {
		return p.reviewer.Review(ctx, []provider.Message{
			{Role: "system", Content: reviewSystemPrompt(opts.TargetLanguage)},
			{Role: "user", Content: prompt},
		}, provider.CompleteOptions{Model: opts.Model})
	}, apierr.Transient)

	if err != nil {
		if opts.OnDebug != nil {
			opts.OnDebug(fmt.Sprintf("review window [%d,%d) failed, keeping prior translations: %v", w.start, w.end, err))
		}
		return
	}

	reviewed := parseLines(response)
	for i := w.start; i < w.end; i++ {
		if text, ok := reviewed[segments[i].Index]; ok && text != "" {
			segments[i].TranslatedText = text
		}
	}
}

func reviewSystemPrompt(target lang.Language) string {
	return fmt.Sprintf(
		"Review and, where needed, improve the %s translations below for "+
			"fluency and accuracy. Respond with exactly one line per input line, "+
			"formatted as \"Line N: <revised translation>\" using the same N. If a "+
			"line needs no change, return it unchanged.",
		target.DisplayName(),
	)
}

func buildReviewPrompt(segments []core.Segment, w batch, opts ReviewOptions) string {
	before := opts.ContextBefore
	after := opts.ContextAfter

	var sb strings.Builder
	ctxStart := max(0, w.start-before)
	if ctxStart < w.start {
		sb.WriteString("Context before (do not revise):\n")
		for i := ctxStart; i < w.start; i++ {
			fmt.Fprintf(&sb, "Line %d: %s\n", segments[i].Index, segments[i].TranslatedText)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Review these lines:\n")
	for i := w.start; i < w.end; i++ {
		fmt.Fprintf(&sb, "Line %d: %s\n", segments[i].Index, segments[i].TranslatedText)
	}

	ctxEnd := min(len(segments), w.end+after)
	if ctxEnd > w.end {
		sb.WriteString("\nContext after (do not revise):\n")
		for i := w.end; i < ctxEnd; i++ {
			fmt.Fprintf(&sb, "Line %d: %s\n", segments[i].Index, segments[i].TranslatedText)
		}
	}

	return sb.String()
}
