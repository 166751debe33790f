// Package subtitle parses and serializes the subtitle-facing file formats
// named in spec §6: SRT (the pipeline's primary interchange format), ASS
// (OverlayRenderer Mode A), and ffconcat (OverlayRenderer Mode B).
package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/subtitlepipe/core/internal/core"
)

// TextMode selects which of a segment's text fields SRT serialization emits.
type TextMode int

const (
	TextOriginal TextMode = iota
	TextTranslation
	TextDual // original then a newline then translation
)

// SerializeSRT renders segments to a strict-conforming SRT string: 1-based
// blocks, HH:MM:SS,mmm timing, blank-line separator, LF line endings, no BOM
// (spec §6).
func SerializeSRT(segments []core.Segment, mode TextMode) string {
	var sb strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTTime(s.Start), formatSRTTime(s.End))
		sb.WriteString(textFor(s, mode))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func textFor(s core.Segment, mode TextMode) string {
	switch mode {
	case TextTranslation:
		return s.TranslatedText
	case TextDual:
		if s.TranslatedText == "" {
			return s.OriginalText
		}
		return s.OriginalText + "\n" + s.TranslatedText
	default:
		return s.OriginalText
	}
}

// formatSRTTime renders seconds as HH:MM:SS,mmm.
func formatSRTTime(totalSec float64) string {
	if totalSec < 0 {
		totalSec = 0
	}
	ms := int64(totalSec*1000 + 0.5)
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

var (
	bomPrefix    = "﻿"
	blockSep     = regexp.MustCompile(`\r?\n\r?\n`)
	timingLineRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)
)

// ParseSRT parses an SRT document into segments, assigning dense 1-based
// indexes in file order. Tolerant of CRLF line endings and a leading BOM
// (spec §6). Blank or malformed blocks are skipped rather than erroring, so
// that P1 (parse-then-reemit idempotence) holds against output this package
// itself produced.
func ParseSRT(data string) ([]core.Segment, error) {
	data = strings.TrimPrefix(data, bomPrefix)
	data = strings.ReplaceAll(data, "\r\n", "\n")

	var segments []core.Segment
	for _, block := range blockSep.Split(strings.TrimSpace(data), -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}

		timingLineIdx := 0
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil && len(lines) > 1 {
			timingLineIdx = 1
		}
		if timingLineIdx >= len(lines) {
			continue
		}

		m := timingLineRe.FindStringSubmatch(lines[timingLineIdx])
		if m == nil {
			continue
		}
		start := parseSRTTimeParts(m[1:5])
		end := parseSRTTimeParts(m[5:9])

		text := strings.Join(lines[timingLineIdx+1:], "\n")

		segments = append(segments, core.Segment{
			Index:        len(segments) + 1,
			Start:        start,
			End:          end,
			OriginalText: text,
		})
	}
	return segments, nil
}

func parseSRTTimeParts(parts []string) float64 {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return float64(h*3600+m*60+s) + float64(ms)/1000
}
