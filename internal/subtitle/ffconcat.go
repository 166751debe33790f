package subtitle

import (
	"fmt"
	"strings"
)

// ConcatFrame pairs one rendered PNG with the duration it is shown for, used
// by OverlayRenderer Mode B (spec §6).
type ConcatFrame struct {
	RelativePath string
	DurationSec  float64
}

// BuildFFConcat renders an ffconcat v1.0 list: `file` + `duration` per
// frame, with the last file repeated without a duration line (ffmpeg's
// concat demuxer otherwise drops the final frame's content).
func BuildFFConcat(frames []ConcatFrame) string {
	var sb strings.Builder
	sb.WriteString("ffconcat version 1.0\n")
	for _, f := range frames {
		fmt.Fprintf(&sb, "file '%s'\n", f.RelativePath)
		fmt.Fprintf(&sb, "duration %.6f\n", f.DurationSec)
	}
	if len(frames) > 0 {
		fmt.Fprintf(&sb, "file '%s'\n", frames[len(frames)-1].RelativePath)
	}
	return sb.String()
}
