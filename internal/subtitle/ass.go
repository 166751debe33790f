package subtitle

import (
	"fmt"
	"strings"

	"github.com/subtitlepipe/core/internal/core"
)

// StylePreset holds the font/color/layout choices for a single ASS style
// (spec §4.8: "one style per file, derived from the selected preset").
type StylePreset struct {
	Name            string
	FontName        string
	FontSize        int
	PrimaryColour   string // &HAABBGGRR
	OutlineColour   string
	BackColour      string
	Bold            bool
	Outline         float64
	Shadow          float64
	Alignment       int // numpad-style ASS alignment (2 = bottom-center)
	MarginL         int
	MarginR         int
	MarginV         int
}

// DefaultStylePreset is a plain bottom-centered white-on-black-outline style.
func DefaultStylePreset() StylePreset {
	return StylePreset{
		Name:          "Default",
		FontName:      "Arial",
		FontSize:      48,
		PrimaryColour: "&H00FFFFFF",
		OutlineColour: "&H00000000",
		BackColour:    "&H00000000",
		Bold:          false,
		Outline:       2,
		Shadow:        0,
		Alignment:     2,
		MarginL:       40,
		MarginR:       40,
		MarginV:       40,
	}
}

// BuildASS renders segments into a complete ASS document with one style
// (the preset), PlayResX/Y set to the render resolution, and one Dialogue
// line per segment (spec §6).
func BuildASS(segments []core.Segment, preset StylePreset, mode TextMode, playResX, playResY int) string {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&sb, "PlayResX: %d\n", playResX)
	fmt.Fprintf(&sb, "PlayResY: %d\n", playResY)
	sb.WriteString("\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	bold := 0
	if preset.Bold {
		bold = -1
	}
	fmt.Fprintf(&sb, "Style: %s,%s,%d,%s,&H000000FF,%s,%s,%d,0,0,0,100,100,0,0,1,%g,%g,%d,%d,%d,%d,1\n\n",
		preset.Name, preset.FontName, preset.FontSize, preset.PrimaryColour,
		preset.OutlineColour, preset.BackColour, bold,
		preset.Outline, preset.Shadow, preset.Alignment,
		preset.MarginL, preset.MarginR, preset.MarginV)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, s := range segments {
		text := strings.ReplaceAll(textFor(s, mode), "\n", "\\N")
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			formatASSTime(s.Start), formatASSTime(s.End), preset.Name, text)
	}

	return sb.String()
}

// formatASSTime renders seconds as ASS's H:MM:SS.cc (centisecond precision).
func formatASSTime(totalSec float64) string {
	if totalSec < 0 {
		totalSec = 0
	}
	cs := int64(totalSec*100 + 0.5)
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// EscapeASSFilterPath escapes a path for use inside ffmpeg's
// `-vf subtitles='<path>'` filter value (spec §4.8's exact rule):
// `\` → `\\`, `:` → `\:`, `,` → `\,`, `'` → `\'`.
func EscapeASSFilterPath(path string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`,`, `\,`,
		`'`, `\'`,
	)
	return r.Replace(path)
}
