// Package textmatch canonicalizes utterances and scores them against catalog
// phrases. Everything here is pure and safe for concurrent use.
package textmatch

import (
	"strings"
	"unicode"
)

// Normalize lower-cases s, replaces every rune other than ASCII letters,
// digits, whitespace and '&' with a space, collapses whitespace and trims.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		keep := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '&'
		if !keep {
			// whitespace and stripped runes both become a separator
			if b.Len() > 0 {
				pendingSpace = true
			}
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokens splits an already normalized string on single spaces.
func Tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// HasToken reports whether tok appears as a whole token of normalized.
func HasToken(normalized, tok string) bool {
	for _, t := range Tokens(normalized) {
		if t == tok {
			return true
		}
	}
	return false
}

// Contains reports whether the normalized needle occurs in the normalized
// haystack. Empty needles never match.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// WordCount counts whitespace separated words in s.
func WordCount(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}
