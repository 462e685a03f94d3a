// Package intent turns a free-form utterance into one discrete intent:
// a background cue, an ERP module, an information topic, or nothing.
package intent

import (
	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/textmatch"
)

// AcceptThreshold is the minimum fuzzy score, inclusive, for a module match.
const AcceptThreshold = 0.42

type Kind string

const (
	KindNone       Kind = "none"
	KindBackground Kind = "background"
	KindModule     Kind = "module"
	KindTopic      Kind = "topic"
)

// Intent is the single winner for one utterance. Score is only meaningful
// for module matches; lexical hits report 1.
type Intent struct {
	Kind  Kind
	Key   string
	Score float64
}

func (i Intent) Found() bool { return i.Kind != KindNone }

// Resolver matches against one immutable catalog. It never fails: no match
// is reported as KindNone.
type Resolver struct {
	cat   *catalog.Catalog
	score func(text, phrase string) float64
}

func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{cat: c, score: textmatch.Score}
}

func (r *Resolver) Catalog() *catalog.Catalog { return r.cat }

// Resolve applies the fixed precedence: background, module, topic.
func (r *Resolver) Resolve(text string) Intent {
	if key, ok := r.DetectBackground(text); ok {
		return Intent{Kind: KindBackground, Key: key, Score: 1}
	}
	if m := r.MatchModule(text); m.Key != "" && m.Score >= AcceptThreshold {
		return Intent{Kind: KindModule, Key: m.Key, Score: m.Score}
	}
	if key, ok := r.ResolveTopic(text); ok {
		return Intent{Kind: KindTopic, Key: key, Score: 1}
	}
	return Intent{Kind: KindNone}
}
