package finalize

import "strings"

func tokenize(text string) []string {
	return strings.Fields(text)
}

// suffixPrefixOverlap returns the length of the longest run of tokens that
// are simultaneously a suffix of a and a prefix of b (spec §4.7 step 1).
func suffixPrefixOverlap(a, b []string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for n := max; n > 0; n-- {
		if tokensEqual(a[len(a)-n:], b[:n]) {
			return n
		}
	}
	return 0
}

func tokensEqual(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// jaccardSimilarity computes set-based Jaccard similarity between the two
// token sets (case-insensitive).
func jaccardSimilarity(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = true
	}
	return set
}
