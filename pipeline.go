// Package subtitlepipe is the library surface callers embed (spec §6): three
// entry points, each taking an operation id, a cancellation-bearing context,
// and a progress callback, composing the C1-C9 passes under internal/.
package subtitlepipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/subtitlepipe/core/internal/audio"
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/ffmpeg"
	"github.com/subtitlepipe/core/internal/finalize"
	"github.com/subtitlepipe/core/internal/lang"
	"github.com/subtitlepipe/core/internal/media"
	"github.com/subtitlepipe/core/internal/overlay"
	"github.com/subtitlepipe/core/internal/provider"
	"github.com/subtitlepipe/core/internal/registry"
	"github.com/subtitlepipe/core/internal/subtitle"
	"github.com/subtitlepipe/core/internal/transcribe"
	"github.com/subtitlepipe/core/internal/translate"
)

// OutputMode selects which text ends up in the emitted SRT/overlay (spec §6).
type OutputMode int

const (
	OutputOriginal OutputMode = iota
	OutputTranslation
	OutputDual
)

func (m OutputMode) textMode() subtitle.TextMode {
	switch m {
	case OutputTranslation:
		return subtitle.TextTranslation
	case OutputDual:
		return subtitle.TextDual
	default:
		return subtitle.TextOriginal
	}
}

// OverlayMode chooses what plays under the burned-in/overlaid captions (spec §6).
type OverlayMode int

const (
	OverlaySourceVideo OverlayMode = iota
	OverlayBlackVideo
)

// Aspect selects source framing or a vertical 9:16 crop/pad (spec §6).
type Aspect int

const (
	AspectSource Aspect = iota
	AspectVertical9x16
)

// ExtractOptions configures ExtractSubtitlesFromMedia (spec §6).
type ExtractOptions struct {
	OpId                core.OperationId
	TargetLanguage      string // "original" or an ISO-like tag
	QualityTranscription bool   // sequential vs parallel
	OnProgress          core.ProgressSink
}

// ExtractSubtitlesFromMedia runs C1-C5 and then FinalizePass (C7): prepare
// audio, VAD-chunk, route, transcribe, finalize, and returns the
// untranslated segments as an SRT string.
// This is the first of the three library entry points (spec §6).
func ExtractSubtitlesFromMedia(ctx context.Context, cc *core.CoreContext, reg *registry.Registry, inputPath string, opts ExtractOptions) (string, error) {
	sink := opts.OnProgress
	if sink == nil {
		sink = core.NoopSink
	}

	op := core.NewOperation(ctx, opts.OpId)
	if reg != nil {
		reg.Register(op, "")
		defer reg.Release(opts.OpId)
	}
	if err := op.Start(); err != nil {
		return "", err
	}

	handle, err := media.Open(op.Context(), cc.FFprobePath, inputPath)
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return "", err
	}

	preparer := audio.NewPreparer(cc.FFmpegPath)
	audioPath, err := preparer.Prepare(op.Context(), inputPath, string(opts.OpId))
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return "", err
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(audioPath)) }()
	if reg != nil {
		reg.SetTempDir(opts.OpId, filepath.Dir(audioPath))
	}

	sink(core.ProgressEvent{OpId: opts.OpId, Percent: core.Scale(core.StageAudio, 100), Stage: core.StageAudio})

	target, err := lang.Parse(opts.TargetLanguage)
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return "", err
	}

	route := provider.RouteTranscription(handle.DurationSec, handle.SizeMiB())

	client := provider.New(cc.OpenAIAPIKey)
	pass := transcribe.New(client)

	tOpts := transcribe.Options{
		FfmpegPath: cc.FFmpegPath,
		OpId:       string(opts.OpId),
		Language:   target,
		Quality:    opts.QualityTranscription,
		FanOut:     cc.Thresholds.TranscribeFanOut,
		OnProgress: func(done, total int) {
			local := 0.0
			if total > 0 {
				local = float64(done) / float64(total) * 100
			}
			sink(core.ProgressEvent{
				OpId: opts.OpId, Stage: core.StageTranscribe, Current: done, Total: total,
				Percent: core.Scale(core.StageTranscribe, local),
			})
		},
	}

	var segments []core.Segment
	if route.Chunked {
		chunker := audio.NewVADChunker(cc.FFmpegPath)
		chunks, err := chunker.Chunk(op.Context(), audioPath, handle.DurationSec)
		if err != nil {
			_ = op.Fail()
			core.Failed(sink, opts.OpId, err)
			return "", err
		}
		segments, err = pass.Chunked(op.Context(), audioPath, chunks, tOpts)
		if err != nil {
			_ = op.Fail()
			core.Failed(sink, opts.OpId, err)
			return "", err
		}
	} else {
		segments, err = pass.Direct(op.Context(), audioPath, tOpts)
		if err != nil {
			_ = op.Fail()
			core.Failed(sink, opts.OpId, err)
			return "", err
		}
	}

	srt := finalize.RunToSRT(segments, finalize.Options{Thresholds: cc.Thresholds}, subtitle.TextOriginal)

	sink(core.ProgressEvent{OpId: opts.OpId, Percent: 100, Stage: core.StageFinal, PartialSRT: srt})
	if err := op.Complete(); err != nil {
		return "", err
	}
	return srt, nil
}

// TranslateOptions configures TranslateSRT (spec §6).
type TranslateOptions struct {
	OpId              core.OperationId
	TargetLanguage    string
	QualityTranslation bool // enables the review pass
	OutputMode        OutputMode
	OnProgress        core.ProgressSink
}

// TranslateSRT runs C6 (and, when requested, its review pass) over an
// already-extracted SRT, returning a re-serialized SRT in the requested
// output mode. Second of the three library entry points (spec §6).
func TranslateSRT(ctx context.Context, cc *core.CoreContext, reg *registry.Registry, srt string, opts TranslateOptions) (string, error) {
	sink := opts.OnProgress
	if sink == nil {
		sink = core.NoopSink
	}

	op := core.NewOperation(ctx, opts.OpId)
	if reg != nil {
		reg.Register(op, "")
		defer reg.Release(opts.OpId)
	}
	if err := op.Start(); err != nil {
		return "", err
	}

	segments, err := subtitle.ParseSRT(srt)
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, fmt.Errorf("parse input srt: %w", err))
		return "", err
	}

	target, err := lang.Parse(opts.TargetLanguage)
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return "", err
	}

	client := provider.New(cc.OpenAIAPIKey)

	translator := translate.New(client)
	segments, err = translator.Translate(op.Context(), segments, translate.Options{
		TargetLanguage: target,
		BatchSize:      cc.Thresholds.TranslateBatchSize,
		FanOut:         cc.Thresholds.TranslateFanOut,
		ContextBefore:  cc.Thresholds.TranslateContextBefore,
		ContextAfter:   cc.Thresholds.TranslateContextAfter,
	})
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return "", err
	}
	sink(core.ProgressEvent{OpId: opts.OpId, Percent: core.Scale(core.StageTranslate, 100), Stage: core.StageTranslate})

	if opts.QualityTranslation {
		reviewer := translate.NewReviewPass(client)
		segments, err = reviewer.Review(op.Context(), segments, translate.ReviewOptions{
			TargetLanguage: target,
			WindowSize:     cc.Thresholds.ReviewWindowSize,
			ContextBefore:  cc.Thresholds.ReviewContextBefore,
			ContextAfter:   cc.Thresholds.ReviewContextAfter,
		})
		if err != nil {
			_ = op.Fail()
			core.Failed(sink, opts.OpId, err)
			return "", err
		}
		sink(core.ProgressEvent{OpId: opts.OpId, Percent: core.Scale(core.StageReview, 100), Stage: core.StageReview})
	}

	out := finalize.RunToSRT(segments, finalize.Options{Thresholds: cc.Thresholds}, opts.OutputMode.textMode())

	sink(core.ProgressEvent{OpId: opts.OpId, Percent: 100, Stage: core.StageFinal, PartialSRT: out})
	if err := op.Complete(); err != nil {
		return "", err
	}
	return out, nil
}

// RenderOptions configures RenderOverlay (spec §6, §4.8).
type RenderOptions struct {
	OpId            core.OperationId
	InputVideoPath  string // empty when OverlayMode == OverlayBlackVideo and no source video exists
	InputAudioPath  string // required when InputVideoPath is empty
	OutputPath      string
	OverlayMode     OverlayMode
	StylizeKaraoke  bool // chooses Mode B (karaoke PNG overlay) over Mode A (ASS burn-in)
	StylePreset     subtitle.StylePreset
	OutputTextMode  OutputMode
	Aspect          Aspect
	Width, Height   int
	PNGFrames       func(states []overlay.State) ([]subtitle.ConcatFrame, error) // required for Mode B
	OnProgress      core.ProgressSink
}

// RenderOverlay runs C8: burns (Mode A) or overlays (Mode B) the finalized
// subtitles onto video, publishing atomically to OutputPath. Third of the
// three library entry points (spec §6).
func RenderOverlay(ctx context.Context, cc *core.CoreContext, reg *registry.Registry, srt string, opts RenderOptions) error {
	sink := opts.OnProgress
	if sink == nil {
		sink = core.NoopSink
	}

	op := core.NewOperation(ctx, opts.OpId)
	if reg != nil {
		reg.Register(op, "")
		defer reg.Release(opts.OpId)
	}
	if err := op.Start(); err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "subtitlepipe-render-"+string(opts.OpId)+"-")
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return err
	}
	defer func() { _ = os.RemoveAll(tempDir) }()
	if reg != nil {
		reg.SetTempDir(opts.OpId, tempDir)
	}

	videoPath := opts.InputVideoPath
	if opts.OverlayMode == OverlayBlackVideo {
		videoPath = ""
	}

	var durationSec float64
	if videoPath != "" {
		durationSec, err = ffmpeg.ProbeDuration(op.Context(), cc.FFprobePath, videoPath)
	} else {
		durationSec, err = ffmpeg.ProbeDuration(op.Context(), cc.FFprobePath, opts.InputAudioPath)
	}
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return err
	}

	renderer := overlay.NewRenderer(cc.FFmpegPath, tempDir)
	renderIn := overlay.RenderInput{
		SRT:             srt,
		VideoDurationMs: int64(durationSec * 1000),
		StylePreset:     opts.StylePreset,
		TextMode:        opts.OutputTextMode.textMode(),
		PNGFrames:       opts.PNGFrames,
	}
	renderOpts := overlay.RenderOptions{
		InputVideoPath: videoPath,
		InputAudioPath: opts.InputAudioPath,
		OutputPath:     filepath.Join(tempDir, "out.mp4"),
		DurationSec:    durationSec,
		Width:          opts.Width,
		Height:         opts.Height,
		VerticalPad:    opts.Aspect == AspectVertical9x16,
	}

	if opts.StylizeKaraoke {
		err = renderer.RenderPNGOverlay(op.Context(), renderIn, renderOpts)
	} else {
		err = renderer.RenderASS(op.Context(), renderIn, renderOpts)
	}
	if err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return err
	}

	if err := overlay.AtomicPublish(renderOpts.OutputPath, opts.OutputPath); err != nil {
		_ = op.Fail()
		core.Failed(sink, opts.OpId, err)
		return err
	}

	sink(core.ProgressEvent{OpId: opts.OpId, Percent: 100, Stage: core.StageFinal})
	return op.Complete()
}
