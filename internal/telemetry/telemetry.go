// Package telemetry wires the module's structured logging, grounded on the
// same github.com/rs/zerolog call shape the xg2g ffmpeg/proxy packages use
// (zerolog.Ctx(ctx).With().Str(...).Logger()). Components never write to
// stdout/stderr directly; they log through a Logger obtained here.
package telemetry

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/subtitlepipe/core/internal/core"
)

// Level mirrors the subset of zerolog levels this module exposes at its
// configuration boundary, so callers outside internal/ never import zerolog
// directly just to pick a level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Options configures New.
type Options struct {
	Writer  io.Writer // defaults to os.Stderr
	Level   Level
	Pretty  bool // human-readable console output instead of JSON lines
}

// New builds the process-wide base logger. A child logger scoped to one
// operation is obtained via WithOperation, never by mutating this one.
func New(opts Options) zerolog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(opts.Level.zerolog()).With().Timestamp().Logger()
}

// WithOperation returns logger tagged with op_id, the convention every
// component uses to correlate log lines with a single pipeline run (spec
// §3's OperationId, scoped the same way CoreContext.WithOperation does).
func WithOperation(logger zerolog.Logger, id core.OperationId) zerolog.Logger {
	return logger.With().Str("op_id", id.String()).Logger()
}

// WithComponent tags logger with the subsystem emitting the line (e.g.
// "vad", "transcribe", "overlay"), matching the xg2g ffmpeg runner's
// log.WithComponent("ffmpeg") convention.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// Ctx attaches logger to ctx so deep call chains can retrieve it via
// zerolog.Ctx(ctx) without threading a Logger parameter through every
// function signature, the same pattern the xg2g proxy transcoder uses.
func Ctx(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromCtx retrieves the logger attached by Ctx, or the disabled logger if
// none was attached.
func FromCtx(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}
