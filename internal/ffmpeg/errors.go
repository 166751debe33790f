package ffmpeg

import "errors"

// ErrNotFound indicates FFmpeg binary is not installed and auto-download failed.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrUnsupportedPlatform indicates the OS/architecture is not supported for auto-download.
var ErrUnsupportedPlatform = errors.New("unsupported platform for FFmpeg auto-download")

// ErrChecksumMismatch indicates a downloaded file's checksum verification failed.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrDownloadFailed indicates a file download could not be completed.
var ErrDownloadFailed = errors.New("download failed")

// ErrTimeout is returned when FFmpeg does not exit within the graceful shutdown timeout.
var ErrTimeout = errors.New("ffmpeg did not exit within timeout")

// ErrProbeFailed indicates ffprobe could not be invoked or the requested
// field was missing from its output (spec §4.1).
var ErrProbeFailed = errors.New("ffprobe failed")

// ErrFfmpegFailed indicates ffmpeg exited with a non-zero status (spec §4.1,
// §7: FfmpegFailed). The stderr tail is carried in the wrapping error text.
var ErrFfmpegFailed = errors.New("ffmpeg failed")

// ErrFfmpegUnavailable indicates the ffmpeg process could not be spawned at
// all (spec §4.1, §7: FfmpegUnavailable).
var ErrFfmpegUnavailable = errors.New("ffmpeg unavailable")

// ErrStartupStall indicates ffmpeg produced no stdout/stderr within the
// startup stall window and was killed (spec §4.1, §7: StartupStall,
// retriable).
var ErrStartupStall = errors.New("ffmpeg startup stalled")

// ErrRuntimeStall indicates ffmpeg produced no progress output for longer
// than the runtime stall window after its first chunk (spec §5).
var ErrRuntimeStall = errors.New("ffmpeg runtime stalled")
