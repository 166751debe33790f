package overlay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/subtitlepipe/core/internal/ffmpeg"
	"github.com/subtitlepipe/core/internal/subtitle"
)

// Renderer drives ffmpeg to produce the final muxed output for either mode.
type Renderer struct {
	ffmpegPath string
	tempDir    string
}

// NewRenderer creates a Renderer that writes intermediate artifacts
// (ASS/ffconcat files) under tempDir, the operation's owned temp directory
// (spec §4.9: temp directories are per-operation).
func NewRenderer(ffmpegPath, tempDir string) *Renderer {
	return &Renderer{ffmpegPath: ffmpegPath, tempDir: tempDir}
}

// RenderInput is everything a render needs beyond the mode/style choice
// already folded into RenderOptions.
type RenderInput struct {
	SRT             string
	VideoDurationMs int64
	StylePreset     subtitle.StylePreset
	TextMode        subtitle.TextMode
	PNGFrames       func(states []State) ([]subtitle.ConcatFrame, error) // Mode B only
}

// RenderASS builds the ASS file from the finalized SRT and runs ffmpeg
// Mode A (spec §4.8).
func (r *Renderer) RenderASS(ctx context.Context, in RenderInput, opts RenderOptions) error {
	segments, err := subtitle.ParseSRT(in.SRT)
	if err != nil {
		return fmt.Errorf("parse srt: %w", err)
	}
	ass := subtitle.BuildASS(segments, in.StylePreset, in.TextMode, opts.Width, opts.Height)

	assPath := filepath.Join(r.tempDir, "overlay.ass")
	if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
		return fmt.Errorf("write ass file: %w", err)
	}
	opts.Mode = ModeASS
	opts.AssPath = assPath

	return ffmpeg.Run(ctx, r.ffmpegPath, BuildArgs(opts), ffmpeg.RunOptions{TotalDurationSec: opts.DurationSec})
}

// RenderPNGOverlay builds the state timeline, renders each state to a PNG
// via in.PNGFrames, writes the ffconcat list, and runs ffmpeg Mode B
// (spec §4.8).
func (r *Renderer) RenderPNGOverlay(ctx context.Context, in RenderInput, opts RenderOptions) error {
	if in.PNGFrames == nil {
		return fmt.Errorf("overlay: PNGFrames renderer is required for mode B")
	}

	states := BuildStates(in.SRT, in.VideoDurationMs)
	frames, err := in.PNGFrames(states)
	if err != nil {
		return fmt.Errorf("render png states: %w", err)
	}

	concat := subtitle.BuildFFConcat(frames)
	concatPath := filepath.Join(r.tempDir, "overlay.ffconcat")
	if err := os.WriteFile(concatPath, []byte(concat), 0o644); err != nil {
		return fmt.Errorf("write ffconcat file: %w", err)
	}
	opts.Mode = ModePNG
	opts.ConcatPath = concatPath

	return ffmpeg.Run(ctx, r.ffmpegPath, BuildArgs(opts), ffmpeg.RunOptions{TotalDurationSec: opts.DurationSec})
}

// AtomicPublish moves a rendered file from its temp location into the
// caller-chosen destination, handling cross-device renames (spec §4.8:
// "on EXDEV, copy + unlink").
func AtomicPublish(tempPath, destPath string) error {
	if err := os.Rename(tempPath, destPath); err == nil {
		return nil
	}
	// Cross-device: copy then remove the source.
	data, err := os.ReadFile(tempPath)
	if err != nil {
		return fmt.Errorf("read rendered temp file: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("write destination file: %w", err)
	}
	return os.Remove(tempPath)
}
