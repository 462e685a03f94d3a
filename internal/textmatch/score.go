package textmatch

import "strings"

// Weights for the final blend of token overlap and whole-string similarity.
const (
	overlapWeight    = 0.8
	wholeBlendWeight = 0.2
	wholeOnlyWeight  = 0.7
)

// Score returns how well text (a user utterance) matches phrase (a catalog
// entry). Containment of the normalized phrase scores 1. Otherwise the score
// blends per-token fuzzy hits with whole-string edit similarity. The whole
// term goes negative for long, unrelated strings; the result is floored at 0.
func Score(text, phrase string) float64 {
	t, p := Normalize(text), Normalize(phrase)
	if t == "" || p == "" {
		return 0
	}
	if strings.Contains(t, p) {
		return 1
	}

	textTokens := Tokens(t)
	phraseTokens := Tokens(p)
	hits := 0
	for _, pt := range phraseTokens {
		if tokenHit(pt, textTokens) {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(phraseTokens))

	phraseLen := len([]rune(p))
	whole := 1 - float64(Levenshtein(t, p))/float64(max(phraseLen, 1))

	score := max(overlapWeight*overlap+wholeBlendWeight*whole, wholeOnlyWeight*whole)
	return max(score, 0)
}

func tokenHit(pt string, textTokens []string) bool {
	limit := TokenThreshold(len([]rune(pt)))
	for _, tt := range textTokens {
		if tt == pt {
			return true
		}
	}
	if limit == 0 {
		return false
	}
	for _, tt := range textTokens {
		if Levenshtein(tt, pt) <= limit {
			return true
		}
	}
	return false
}

// TokenThreshold is the edit distance tolerated for a phrase token of the
// given length. Short tokens must match exactly.
func TokenThreshold(n int) int {
	switch {
	case n >= 6:
		return 2
	case n >= 4:
		return 1
	default:
		return 0
	}
}

// Levenshtein computes the unit-cost edit distance between a and b.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	r1, r2 := []rune(a), []rune(b)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
