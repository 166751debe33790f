package core

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Thresholds holds every overridable numeric default named in spec §4 and
// §6. Zero-value Thresholds is invalid; use DefaultThresholds().
type Thresholds struct {
	// VADChunker (§4.3)
	MergeGapSec         float64 // default 0.6 (open question, resolved in DESIGN.md)
	MaxSpeechlessSec     float64 // default 30
	PrePadSec           float64 // default 0.25
	PostPadSec          float64 // default 0.5
	MaxChunkDurationSec float64 // default 60
	MinChunkDurationSec float64 // default 2

	// Segment invariants (§3, §4.7)
	MinDurSec   float64 // default 1.0
	MaxDurSec   float64 // default 7.0
	MinGapSec   float64 // default 0.12

	// CPS ceilings (§4.7), characters per second by script class.
	CPSLatin float64 // default 17
	CPSCJK   float64 // default 13
	CPSThai  float64 // default 15

	// TranscribePass (§4.5)
	MaxPromptChars     int // default 224
	MinSegmentsForPrompt int // default 5

	// Routing (§4.4)
	DirectMaxDurationSec float64 // default 160
	DirectMaxSizeBytes   int64   // default 95 MiB
	ChunkedOnlySizeBytes int64   // default 500 MiB

	// TranslatePass (§4.6)
	TranslateBatchSize   int // default 10
	TranslateContextBefore int // default 3 (open question, resolved in DESIGN.md)
	TranslateContextAfter  int // default 3 (open question, resolved in DESIGN.md)
	TranslateFanOut     int // default 4
	TranscribeFanOut    int // default 5
	ReviewWindowSize    int // default 30
	ReviewContextBefore int // default 15
	ReviewContextAfter  int // default 15

	// Hallucination filter (§4.5)
	HallucinationNoSpeechProb float64 // default 0.92
	HallucinationOverlap      float64 // default 0.15
	HallucinationLogprob      float64 // default -1.3

	// Timeouts (§5)
	StreamStallTimeout     time.Duration // default 60s
	FFmpegStartupStall     time.Duration // default 35s
	FFmpegStartupStallCold time.Duration // default 60s
	FFmpegRuntimeStall     time.Duration // default 40s

	// ProviderClient retry policy (§4.4)
	RetryBaseDelay time.Duration // default 2s
	RetryMaxDelay  time.Duration // default 10s
	RetryMaxAttempts int         // default 3

	// Heartbeat (§4.9)
	HeartbeatInterval time.Duration // default 5s
}

const (
	mib = 1 << 20
)

// DefaultThresholds returns the numeric defaults given throughout spec §4-6.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MergeGapSec:         0.6,
		MaxSpeechlessSec:    30,
		PrePadSec:           0.25,
		PostPadSec:          0.5,
		MaxChunkDurationSec: 60,
		MinChunkDurationSec: 2,

		MinDurSec: 1.0,
		MaxDurSec: 7.0,
		MinGapSec: 0.12,

		CPSLatin: 17,
		CPSCJK:   13,
		CPSThai:  15,

		MaxPromptChars:       224,
		MinSegmentsForPrompt: 5,

		DirectMaxDurationSec: 160,
		DirectMaxSizeBytes:   95 * mib,
		ChunkedOnlySizeBytes: 500 * mib,

		TranslateBatchSize:     10,
		TranslateContextBefore: 3,
		TranslateContextAfter:  3,
		TranslateFanOut:     4,
		TranscribeFanOut:    5,
		ReviewWindowSize:    30,
		ReviewContextBefore: 15,
		ReviewContextAfter:  15,

		HallucinationNoSpeechProb: 0.92,
		HallucinationOverlap:      0.15,
		HallucinationLogprob:      -1.3,

		StreamStallTimeout:     60 * time.Second,
		FFmpegStartupStall:     35 * time.Second,
		FFmpegStartupStallCold: 60 * time.Second,
		FFmpegRuntimeStall:     40 * time.Second,

		RetryBaseDelay:   2 * time.Second,
		RetryMaxDelay:    10 * time.Second,
		RetryMaxAttempts: 3,

		HeartbeatInterval: 5 * time.Second,
	}
}

// Metrics is satisfied by the optional Prometheus collectors in
// internal/registry, which is the only thing operations are tracked
// through (registry.Registry, not CoreContext, owns the Metrics
// instance). A nil Metrics is always safe to use: every call site
// nil-checks before recording (spec's metrics are strictly additive).
type Metrics interface {
	OperationStarted()
	OperationFinished(state string)
	ProcessSpawned()
	ProcessExited()
}

// CoreContext is the explicit replacement for global mutable state (design
// notes §9): the ffmpeg binary path, provider credentials, thresholds, and
// logger are captured once per process and passed by pointer into every
// operation.
type CoreContext struct {
	FFmpegPath  string
	FFprobePath string

	OpenAIAPIKey string

	Thresholds Thresholds
	Logger     zerolog.Logger
}

// NewCoreContext builds a CoreContext with default thresholds and a logger
// writing to w with no level filter of its own (all levels are written).
func NewCoreContext(w io.Writer) *CoreContext {
	return &CoreContext{
		Thresholds: DefaultThresholds(),
		Logger:     zerolog.New(w).With().Timestamp().Logger(),
	}
}

// WithOperation returns a child logger tagged with the operation's id, for
// components to use as their scoped logger (ambient stack §10).
func (c *CoreContext) WithOperation(id OperationId) zerolog.Logger {
	return c.Logger.With().Str("op_id", id.String()).Logger()
}
