package core_test

import (
	"testing"

	"github.com/subtitlepipe/core/internal/core"
)

func TestScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stage core.Stage
		local float64
		want  float64
	}{
		{"audio start", core.StageAudio, 0, 0},
		{"audio end", core.StageAudio, 100, 10},
		{"audio mid", core.StageAudio, 50, 5},
		{"transcribe start", core.StageTranscribe, 0, 10},
		{"transcribe end", core.StageTranscribe, 100, 50},
		{"translate mid", core.StageTranslate, 50, 62.5},
		{"review end", core.StageReview, 100, 95},
		{"final end", core.StageFinal, 100, 100},
		{"clamps below zero", core.StageAudio, -10, 0},
		{"clamps above 100", core.StageAudio, 200, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := core.Scale(tt.stage, tt.local); got != tt.want {
				t.Errorf("Scale(%v, %v) = %v, want %v", tt.stage, tt.local, got, tt.want)
			}
		})
	}
}
