// Package lang validates and displays the ISO-639 language tags used by
// target_language (spec §6) and transcription prompts.
package lang

import (
	"fmt"
	"strings"

	iso "github.com/barbashov/iso639-3"
)

// Original is the sentinel target_language value meaning "do not translate".
const Original = "original"

// Language represents a validated language tag.
// The zero value represents "original" (no translation requested / auto
// detect) and is always valid.
type Language struct {
	code string // normalized: lowercase, hyphen separator (e.g. "pt-br")
}

// Parse validates and returns a Language from a string.
// Empty string and the literal "original" both represent the zero value.
// Returns ErrInvalid if the tag is not a recognized ISO 639-1 code (or a
// recognized code with a region suffix, e.g. "pt-BR").
func Parse(s string) (Language, error) {
	if s == "" || strings.EqualFold(s, Original) {
		return Language{}, nil
	}

	normalized := Normalize(s)
	base := baseCode(normalized)
	if !isValid(base) {
		return Language{}, fmt.Errorf("invalid language tag %q (use ISO 639-1 codes like 'en', 'fr', or locales like 'pt-BR', or %q): %w",
			s, Original, ErrInvalid)
	}

	return Language{code: normalized}, nil
}

// MustParse parses a language tag and panics if invalid.
// Use only for compile-time constants and tests.
func MustParse(s string) Language {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// Normalize normalizes a language code to lowercase with hyphen separator.
// Converts underscores to hyphens and lowercases the entire string.
// Does not trim whitespace or validate format.
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// String returns the normalized tag, or "original" for the zero value.
func (l Language) String() string {
	if l.code == "" {
		return Original
	}
	return l.code
}

// IsZero reports whether this is the "original" / auto-detect value.
func (l Language) IsZero() bool {
	return l.code == ""
}

// IsOriginal is an alias for IsZero matching the spec's "original" vocabulary.
func (l Language) IsOriginal() bool {
	return l.IsZero()
}

// IsEnglish reports whether this language is English.
func (l Language) IsEnglish() bool {
	if l.code == "" {
		return false
	}
	return l.code == "en" || strings.HasPrefix(l.code, "en-")
}

// BaseCode returns the ISO 639-1 base code (without region).
// Returns empty string for the "original" value.
func (l Language) BaseCode() string {
	return baseCode(l.code)
}

// DisplayName returns a human-readable name for this language.
// Returns empty string for the "original" value.
func (l Language) DisplayName() string {
	if l.code == "" {
		return ""
	}
	if entry := iso.FromPart1Code(l.BaseCode()); entry != nil {
		return entry.Name
	}
	return l.code
}

// baseCode extracts the ISO 639-1 base code from a normalized locale.
func baseCode(normalized string) string {
	if normalized == "" {
		return ""
	}
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// isValid reports whether base is a known ISO 639-1 code, per the iso639-3 table.
func isValid(base string) bool {
	return iso.FromPart1Code(base) != nil
}
