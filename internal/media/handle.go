// Package media wraps a source media file with the probed facts the rest of
// the pipeline needs (duration, fps, video presence), so downstream
// components never shell out to ffprobe a second time for the same file.
package media

import (
	"context"
	"fmt"
	"os"

	"github.com/subtitlepipe/core/internal/ffmpeg"
)

// Handle is the resolved view of a source media file (spec §3 MediaHandle).
type Handle struct {
	Path         string
	SizeBytes    int64
	DurationSec  float64
	FPS          float64
	HasVideo     bool
}

// Open stats the file and probes it with ffprobe, returning a Handle with
// every fact the pipeline needs cached up front.
func Open(ctx context.Context, ffprobePath, path string) (Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Handle{}, fmt.Errorf("stat media: %w", err)
	}
	if info.IsDir() {
		return Handle{}, fmt.Errorf("media path %q is a directory", path)
	}

	duration, err := ffmpeg.ProbeDuration(ctx, ffprobePath, path)
	if err != nil {
		return Handle{}, err
	}
	fps, err := ffmpeg.ProbeFPS(ctx, ffprobePath, path)
	if err != nil {
		return Handle{}, err
	}
	hasVideo, err := ffmpeg.HasVideoTrack(ctx, ffprobePath, path)
	if err != nil {
		return Handle{}, err
	}

	return Handle{
		Path:        path,
		SizeBytes:   info.Size(),
		DurationSec: duration,
		FPS:         fps,
		HasVideo:    hasVideo,
	}, nil
}

// SizeMiB returns the file size in mebibytes, used by §4.4's routing rules.
func (h Handle) SizeMiB() float64 {
	return float64(h.SizeBytes) / (1024 * 1024)
}
