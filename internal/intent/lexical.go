package intent

import (
	"strings"

	"kiosk/agent/internal/textmatch"
)

// ResolveTopic returns the first topic, in catalog order, with a match key
// contained in text. Mentioning the organization itself falls back to the
// home topic.
func (r *Resolver) ResolveTopic(text string) (string, bool) {
	q := textmatch.Normalize(text)
	if q == "" {
		return "", false
	}
	for _, t := range r.cat.Topics {
		if containsAny(q, t.MatchKeys) {
			return t.Key, true
		}
	}
	if r.cat.HomeTopic != "" && r.cat.Organization != "" {
		if org := textmatch.Normalize(r.cat.Organization); org != "" && strings.Contains(q, org) {
			return r.cat.HomeTopic, true
		}
	}
	return "", false
}

// DetectBackground returns the first background, in catalog order, with a
// match key contained in text.
func (r *Resolver) DetectBackground(text string) (string, bool) {
	q := textmatch.Normalize(text)
	if q == "" {
		return "", false
	}
	for _, b := range r.cat.Backgrounds {
		if containsAny(q, b.MatchKeys) {
			return b.Key, true
		}
	}
	return "", false
}

func containsAny(normalized string, keys []string) bool {
	for _, k := range keys {
		if nk := textmatch.Normalize(k); nk != "" && strings.Contains(normalized, nk) {
			return true
		}
	}
	return false
}
