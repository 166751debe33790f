package overlay

import (
	"fmt"

	"github.com/subtitlepipe/core/internal/subtitle"
)

// Mode selects between the two independent render strategies (spec §4.8).
type Mode int

const (
	ModeASS Mode = iota // burn-in, fast path
	ModePNG              // headless-browser overlay, styled path
)

// RenderOptions is the value-typed, fully-resolved configuration for one
// render. Determinism (P8) requires that identical Options always produce
// identical argv — so every field that could influence the command line
// lives here, nothing is read from ambient state.
type RenderOptions struct {
	Mode Mode

	InputVideoPath  string // empty when audio-only
	InputAudioPath  string // used to build a synthetic base when InputVideoPath == ""
	OutputPath      string
	AssPath         string // Mode A: path to the built ASS file
	ConcatPath      string // Mode B: path to the built ffconcat list

	DurationSec float64
	Width       int
	Height      int

	VerticalPad bool // scale+pad to 9:16
}

// BuildArgs returns the exact ffmpeg argument vector for opts (spec §4.8:
// "both modes must produce byte-identical ffmpeg argument vectors for
// identical inputs/options"). Pure function: no I/O, no randomness.
func BuildArgs(opts RenderOptions) []string {
	switch opts.Mode {
	case ModePNG:
		return buildPNGArgs(opts)
	default:
		return buildASSArgs(opts)
	}
}

func buildASSArgs(opts RenderOptions) []string {
	var args []string

	if opts.InputVideoPath == "" {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%s", opts.Width, opts.Height, formatSeconds(opts.DurationSec)),
			"-i", opts.InputAudioPath,
		)
	} else {
		args = append(args, "-i", opts.InputVideoPath)
	}

	vf := "subtitles='" + subtitle.EscapeASSFilterPath(opts.AssPath) + "'"
	if opts.VerticalPad {
		vf += ",scale=w=-2:h=1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2"
	}
	args = append(args, "-vf", vf)

	args = append(args,
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "18",
		"-movflags", "+faststart",
	)
	if opts.InputVideoPath == "" {
		args = append(args, "-shortest")
	}
	args = append(args, "-y", opts.OutputPath)
	return args
}

func buildPNGArgs(opts RenderOptions) []string {
	var args []string
	baseVideoIdx := 0

	if opts.InputVideoPath == "" {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%s", opts.Width, opts.Height, formatSeconds(opts.DurationSec)),
			"-i", opts.InputAudioPath,
		)
	} else {
		args = append(args, "-i", opts.InputVideoPath)
	}
	concatIdx := baseVideoIdx + 1
	if opts.InputVideoPath == "" {
		concatIdx = baseVideoIdx + 2 // synthesized base video + input audio both precede the concat input
	}

	args = append(args,
		"-f", "concat", "-safe", "0", "-i", opts.ConcatPath,
		"-filter_complex", fmt.Sprintf("[%d:v][%d:v]overlay=format=auto:shortest=1", baseVideoIdx, concatIdx),
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "18",
		"-movflags", "+faststart",
	)
	if opts.InputVideoPath == "" {
		args = append(args, "-shortest")
	}
	args = append(args, "-y", opts.OutputPath)
	return args
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
