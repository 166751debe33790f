package finalize

import "unicode"

// Script classifies text into one of the reading-speed classes spec §4.7
// names: Latin (default), CJK (Han/Hiragana/Katakana/Hangul), or
// Thai/Lao/Khmer.
type Script int

const (
	ScriptLatin Script = iota
	ScriptCJK
	ScriptThaiLaoKhmer
)

// CPSClassifier maps text to the reading-speed cap that applies to it. A
// documented extension point for scripts beyond the three the spec names
// explicitly (DESIGN.md Open Question).
type CPSClassifier interface {
	Classify(text string) Script
}

type defaultClassifier struct{}

// DefaultClassifier classifies by the first CJK or Thai/Lao/Khmer rune found
// in the text (one such rune is enough), defaulting to Latin when none is
// present.
func DefaultClassifier() CPSClassifier { return defaultClassifier{} }

func (defaultClassifier) Classify(text string) Script {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
			return ScriptCJK
		case unicode.Is(unicode.Thai, r), unicode.Is(unicode.Lao, r), unicode.Is(unicode.Khmer, r):
			return ScriptThaiLaoKhmer
		}
	}
	return ScriptLatin
}

func cpsCap(th cpsThresholds, script Script) float64 {
	switch script {
	case ScriptCJK:
		return th.CPSCJK
	case ScriptThaiLaoKhmer:
		return th.CPSThai
	default:
		return th.CPSLatin
	}
}

type cpsThresholds struct {
	CPSLatin float64
	CPSCJK   float64
	CPSThai  float64
}
