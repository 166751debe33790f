package audio

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/subtitlepipe/core/internal/ffmpeg"
)

// Preparer extracts a single mono, 16kHz audio file from a source media path,
// suitable for both VAD detection and transcription (spec §4.2, C2).
type Preparer struct {
	ffmpegPath string
	tempDir    tempDirCreator
}

// PreparerOption configures a Preparer.
type PreparerOption func(*Preparer)

// WithPreparerTempDir overrides the temp directory creator (for testing).
func WithPreparerTempDir(t tempDirCreator) PreparerOption {
	return func(p *Preparer) { p.tempDir = t }
}

// NewPreparer creates a Preparer bound to the resolved ffmpeg binary.
func NewPreparer(ffmpegPath string, opts ...PreparerOption) *Preparer {
	p := &Preparer{
		ffmpegPath: ffmpegPath,
		tempDir:    osTempDirCreator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare extracts mono 16kHz audio from input into a file scoped under a
// directory named after opId, so every temp artifact for one operation lives
// under one prefix and can be cleaned up together.
func (p *Preparer) Prepare(ctx context.Context, input, opId string) (string, error) {
	dir, err := p.tempDir.MkdirTemp("", "subtitlepipe-"+opId+"-")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChunkingFailed, err)
	}
	output := filepath.Join(dir, "audio.wav")

	args := []string{
		"-y",
		"-i", input,
		"-ac", "1",
		"-ar", "16000",
		"-vn",
		output,
	}
	if err := ffmpeg.Run(ctx, p.ffmpegPath, args, ffmpeg.RunOptions{}); err != nil {
		return "", err
	}
	return output, nil
}
