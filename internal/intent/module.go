package intent

import (
	"kiosk/agent/internal/textmatch"
)

// Bare numerals are unambiguous and bypass fuzzy scoring. Index is the
// module's position in catalog order.
var numeralTokens = []struct {
	tokens []string
	index  int
}{
	{[]string{"1", "one"}, 0},
	{[]string{"2", "two"}, 1},
}

// ModuleScore is the best synonym score for one module.
type ModuleScore struct {
	Key   string
	Score float64
}

// ResolveModule returns the module named by text, if any.
func (r *Resolver) ResolveModule(text string) (string, bool) {
	m := r.MatchModule(text)
	if m.Key == "" || m.Score < AcceptThreshold {
		return "", false
	}
	return m.Key, true
}

// MatchModule returns the best module and its score without applying the
// acceptance threshold. Numeral matches report a score of 1.
func (r *Resolver) MatchModule(text string) ModuleScore {
	t := textmatch.Normalize(text)
	if t == "" {
		return ModuleScore{}
	}
	for _, n := range numeralTokens {
		if n.index >= len(r.cat.Modules) {
			continue
		}
		for _, tok := range n.tokens {
			if textmatch.HasToken(t, tok) {
				return ModuleScore{Key: r.cat.Modules[n.index].Key, Score: 1}
			}
		}
	}

	var best ModuleScore
	for _, s := range r.ModuleScores(t) {
		// strict comparison keeps the earlier module on ties
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}

// ModuleScores scores text against every module in catalog order.
func (r *Resolver) ModuleScores(text string) []ModuleScore {
	out := make([]ModuleScore, 0, len(r.cat.Modules))
	for _, m := range r.cat.Modules {
		best := 0.0
		for _, syn := range m.Synonyms {
			if s := r.score(text, syn); s > best {
				best = s
			}
		}
		out = append(out, ModuleScore{Key: m.Key, Score: best})
	}
	return out
}
