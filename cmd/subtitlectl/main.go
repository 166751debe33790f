package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	subtitlepipe "github.com/subtitlepipe/core"
	"github.com/subtitlepipe/core/internal/apierr"
	"github.com/subtitlepipe/core/internal/config"
	"github.com/subtitlepipe/core/internal/core"
	"github.com/subtitlepipe/core/internal/ffmpeg"
	"github.com/subtitlepipe/core/internal/registry"
	"github.com/subtitlepipe/core/internal/subtitle"
	"github.com/subtitlepipe/core/internal/telemetry"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes per specification (spec §6): distinct from the predecessor
// CLI's 7-code scheme, this taxonomy is small and error-class driven rather
// than per-subsystem.
const (
	ExitOK                  = 0
	ExitGeneral             = 1
	ExitCancelled           = 2
	ExitInsufficientCredits = 3
	ExitProviderUnavailable = 4
)

// envMetricsAddr opts the process into exposing Prometheus metrics, matching
// the SUBTITLEPIPE_* env var family internal/config establishes rather than
// adding a CLI flag every subcommand would need to carry.
const envMetricsAddr = "SUBTITLEPIPE_METRICS_ADDR"

func main() {
	config.LoadDotEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := telemetry.New(telemetry.Options{Writer: os.Stderr})

	regOpts := registry.Options{Logger: logger}
	if metricsAddr := os.Getenv(envMetricsAddr); metricsAddr != "" {
		regOpts.Metrics = registry.NewPromMetrics()
		serveMetrics(ctx, metricsAddr, logger)
	}
	reg := registry.New(regOpts)

	rootCmd := &cobra.Command{
		Use:           "subtitlectl",
		Short:         "Extract, translate, and render video subtitles",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(extractCmd(reg))
	rootCmd.AddCommand(translateCmd(reg))
	rootCmd.AddCommand(renderCmd(reg))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// serveMetrics starts a background HTTP server exposing the process's
// Prometheus collectors on addr via promhttp.Handler(). Best-effort: a bind
// failure is logged, not fatal, since metrics are strictly additive.
func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

// newCoreContext resolves ffmpeg/ffprobe and assembles a CoreContext with
// env-overridden thresholds, shared by every subcommand.
func newCoreContext(ctx context.Context) (*core.CoreContext, error) {
	ffmpegPath, err := ffmpeg.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	ffprobePath, err := resolveFFprobe(ffmpegPath)
	if err != nil {
		return nil, err
	}

	cc := core.NewCoreContext(os.Stderr)
	cc.FFmpegPath = ffmpegPath
	cc.FFprobePath = ffprobePath
	cc.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cc.Thresholds = config.LoadThresholds(nil)
	return cc, nil
}

// resolveFFprobe looks for ffprobe next to the resolved ffmpeg binary, then
// falls back to PATH. The predecessor only ever resolved ffmpeg; ffprobe is
// new surface this pipeline needs for media probing (spec §4.1).
func resolveFFprobe(ffmpegPath string) (string, error) {
	candidate := filepath.Join(filepath.Dir(ffmpegPath), "ffprobe")
	if runtime.GOOS == "windows" {
		candidate += ".exe"
	}
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	if path, err := exec.LookPath("ffprobe"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: ffprobe not found next to %s or on PATH", ffmpeg.ErrNotFound, ffmpegPath)
}

func extractCmd(reg *registry.Registry) *cobra.Command {
	var (
		output         string
		targetLanguage string
		quality        bool
	)

	cmd := &cobra.Command{
		Use:   "extract <media>",
		Short: "Extract subtitles from an audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cc, err := newCoreContext(ctx)
			if err != nil {
				return err
			}

			opId := core.NewOperationId()
			srt, err := subtitlepipe.ExtractSubtitlesFromMedia(ctx, cc, reg, args[0], subtitlepipe.ExtractOptions{
				OpId:                 opId,
				TargetLanguage:       targetLanguage,
				QualityTranscription: quality,
				OnProgress:           progressLogger(cc, opId),
			})
			if err != nil {
				return err
			}

			out := config.ResolveOutputPath(output, "", defaultBaseName(args[0])+".srt")
			out = config.EnsureExtension(out, ".srt")
			if err := os.WriteFile(out, []byte(srt), 0o644); err != nil {
				return err
			}
			return reportWritten(cmd, out, len(srt))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output SRT path (default: <input>.srt)")
	cmd.Flags().StringVar(&targetLanguage, "target-language", "original", `target language ("original" or an ISO 639-1 tag)`)
	cmd.Flags().BoolVar(&quality, "quality", false, "sequential transcription with rolling prompt context")
	return cmd
}

func translateCmd(reg *registry.Registry) *cobra.Command {
	var (
		output         string
		targetLanguage string
		quality        bool
		outputMode     string
	)

	cmd := &cobra.Command{
		Use:   "translate <subtitles.srt>",
		Short: "Translate an SRT file into another language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cc, err := newCoreContext(ctx)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			mode, err := parseOutputMode(outputMode)
			if err != nil {
				return err
			}

			opId := core.NewOperationId()
			out, err := subtitlepipe.TranslateSRT(ctx, cc, reg, string(data), subtitlepipe.TranslateOptions{
				OpId:               opId,
				TargetLanguage:     targetLanguage,
				QualityTranslation: quality,
				OutputMode:         mode,
				OnProgress:         progressLogger(cc, opId),
			})
			if err != nil {
				return err
			}

			outPath := config.ResolveOutputPath(output, "", defaultBaseName(args[0])+".translated.srt")
			outPath = config.EnsureExtension(outPath, ".srt")
			if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
				return err
			}
			return reportWritten(cmd, outPath, len(out))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output SRT path")
	cmd.Flags().StringVar(&targetLanguage, "target-language", "", "target language (ISO 639-1 tag, required)")
	cmd.Flags().BoolVar(&quality, "quality", false, "run the review pass after translation")
	cmd.Flags().StringVar(&outputMode, "output-mode", "translation", `"original", "translation", or "dual"`)
	_ = cmd.MarkFlagRequired("target-language")
	return cmd
}

func renderCmd(reg *registry.Registry) *cobra.Command {
	var (
		videoPath      string
		audioPath      string
		output         string
		blackVideo     bool
		karaoke        bool
		vertical       bool
		width, height  int
		outputTextMode string
	)

	cmd := &cobra.Command{
		Use:   "render <subtitles.srt>",
		Short: "Burn or overlay finalized subtitles onto video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cc, err := newCoreContext(ctx)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if videoPath == "" && audioPath == "" {
				return fmt.Errorf("render: either --video or --audio is required")
			}

			mode, err := parseOutputMode(outputTextMode)
			if err != nil {
				return err
			}

			overlayMode := subtitlepipe.OverlaySourceVideo
			if blackVideo {
				overlayMode = subtitlepipe.OverlayBlackVideo
			}
			aspect := subtitlepipe.AspectSource
			if vertical {
				aspect = subtitlepipe.AspectVertical9x16
			}

			out := output
			if out == "" {
				out = defaultBaseName(args[0]) + ".rendered.mp4"
			}

			opId := core.NewOperationId()
			if err := subtitlepipe.RenderOverlay(ctx, cc, reg, string(data), subtitlepipe.RenderOptions{
				OpId:           opId,
				InputVideoPath: videoPath,
				InputAudioPath: audioPath,
				OutputPath:     out,
				OverlayMode:    overlayMode,
				StylizeKaraoke: karaoke,
				StylePreset:    subtitle.DefaultStylePreset(),
				OutputTextMode: mode,
				Aspect:         aspect,
				Width:          width,
				Height:         height,
				OnProgress:     progressLogger(cc, opId),
			}); err != nil {
				return err
			}

			info, err := os.Stat(out)
			if err != nil {
				return err
			}
			return reportWritten(cmd, out, int(info.Size()))
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "source video path")
	cmd.Flags().StringVar(&audioPath, "audio", "", "source audio path (used with --black-video or when no video exists)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output video path")
	cmd.Flags().BoolVar(&blackVideo, "black-video", false, "render over a synthesized black background instead of the source video")
	cmd.Flags().BoolVar(&karaoke, "karaoke", false, "use the styled PNG-overlay renderer instead of ASS burn-in")
	cmd.Flags().BoolVar(&vertical, "vertical", false, "pad/crop to a 9:16 aspect ratio")
	cmd.Flags().IntVar(&width, "width", 1920, "canvas width for a synthesized background")
	cmd.Flags().IntVar(&height, "height", 1080, "canvas height for a synthesized background")
	cmd.Flags().StringVar(&outputTextMode, "output-mode", "original", `"original", "translation", or "dual"`)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the subtitlectl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (commit: %s)\n", version, commit)
			return err
		},
	}
}

func parseOutputMode(s string) (subtitlepipe.OutputMode, error) {
	switch s {
	case "", "original":
		return subtitlepipe.OutputOriginal, nil
	case "translation":
		return subtitlepipe.OutputTranslation, nil
	case "dual":
		return subtitlepipe.OutputDual, nil
	default:
		return 0, fmt.Errorf("invalid output mode %q (want original, translation, or dual)", s)
	}
}

func defaultBaseName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// reportWritten prints a one-line human-readable completion summary to stdout.
func reportWritten(cmd *cobra.Command, path string, size int) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanize.Bytes(uint64(size)))
	return err
}

// progressLogger returns a ProgressSink that logs each event at debug level,
// the CLI's only consumer of progress callbacks (a GUI embedder would wire
// its own sink instead).
func progressLogger(cc *core.CoreContext, opId core.OperationId) core.ProgressSink {
	scoped := cc.WithOperation(opId)
	return func(evt core.ProgressEvent) {
		scoped.Debug().
			Str("stage", evt.Stage.String()).
			Float64("percent", evt.Percent).
			Int("current", evt.Current).
			Int("total", evt.Total).
			Msg("progress")
	}
}

// exitCode maps errors to the exit codes spec §6 defines.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrInvalidTransition) {
		return ExitCancelled
	}
	if errors.Is(err, apierr.ErrInsufficientCredits) || errors.Is(err, apierr.ErrQuotaExceeded) {
		return ExitInsufficientCredits
	}
	if errors.Is(err, apierr.ErrProviderUnavailable) {
		return ExitProviderUnavailable
	}
	return ExitGeneral
}
