// Package catalog holds the module, topic and background catalogs the intent
// resolver matches against. A Catalog is immutable once loaded and is shared
// by pointer between sessions.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid catalog")

// MediaKind identifies how a module's media is presented.
type MediaKind string

const (
	MediaSynthesia MediaKind = "synthesia"
	MediaYouTube   MediaKind = "youtube"
	MediaURL       MediaKind = "url"
)

// MediaRef is an opaque handle the media presenter knows how to show.
type MediaRef struct {
	Kind    MediaKind `yaml:"kind" json:"kind"`
	URL     string    `yaml:"url,omitempty" json:"url,omitempty"`
	VideoID string    `yaml:"video_id,omitempty" json:"video_id,omitempty"`
	// SignalsEnd is false for embeds that never report completion; those get
	// a fallback timeout.
	SignalsEnd bool `yaml:"signals_end" json:"signals_end"`
}

type Module struct {
	Key      string   `yaml:"key"`
	Title    string   `yaml:"title"`
	Summary  string   `yaml:"summary"`
	Media    MediaRef `yaml:"media"`
	Synonyms []string `yaml:"synonyms"`
}

type Topic struct {
	Key       string   `yaml:"key"`
	MatchKeys []string `yaml:"match_keys"`
	Summary   string   `yaml:"summary"`
	URL       string   `yaml:"url"`
}

type Background struct {
	Key       string   `yaml:"key"`
	Label     string   `yaml:"label"`
	MatchKeys []string `yaml:"match_keys"`
	ImageRef  string   `yaml:"image_ref"`
}

// Catalog is everything a session resolves against.
type Catalog struct {
	Organization      string       `yaml:"organization"`
	HomeTopic         string       `yaml:"home_topic"`
	DefaultBackground Background   `yaml:"default_background"`
	Modules           []Module     `yaml:"modules"`
	Topics            []Topic      `yaml:"topics"`
	Backgrounds       []Background `yaml:"backgrounds"`
}

func (c *Catalog) Module(key string) (Module, bool) {
	for _, m := range c.Modules {
		if m.Key == key {
			return m, true
		}
	}
	return Module{}, false
}

func (c *Catalog) Topic(key string) (Topic, bool) {
	for _, t := range c.Topics {
		if t.Key == key {
			return t, true
		}
	}
	return Topic{}, false
}

// Background returns the entry for key. The default background is found by
// its own key as well.
func (c *Catalog) Background(key string) (Background, bool) {
	if key == c.DefaultBackground.Key {
		return c.DefaultBackground, true
	}
	for _, b := range c.Backgrounds {
		if b.Key == key {
			return b, true
		}
	}
	return Background{}, false
}

// Validate checks keys are present and unique per section and lower-cases
// synonyms so matching never depends on catalog casing.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.DefaultBackground.Key) == "" {
		return fmt.Errorf("%w: default_background.key is required", ErrInvalid)
	}
	seen := map[string]bool{}
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.Key == "" {
			return fmt.Errorf("%w: module %d has no key", ErrInvalid, i)
		}
		if seen["m:"+m.Key] {
			return fmt.Errorf("%w: duplicate module key %q", ErrInvalid, m.Key)
		}
		seen["m:"+m.Key] = true
		if len(m.Synonyms) == 0 {
			return fmt.Errorf("%w: module %q has no synonyms", ErrInvalid, m.Key)
		}
		for j, s := range m.Synonyms {
			m.Synonyms[j] = strings.ToLower(s)
		}
	}
	for i, t := range c.Topics {
		if t.Key == "" {
			return fmt.Errorf("%w: topic %d has no key", ErrInvalid, i)
		}
		if seen["t:"+t.Key] {
			return fmt.Errorf("%w: duplicate topic key %q", ErrInvalid, t.Key)
		}
		seen["t:"+t.Key] = true
	}
	if c.HomeTopic != "" {
		if _, ok := c.Topic(c.HomeTopic); !ok {
			return fmt.Errorf("%w: home_topic %q is not a topic", ErrInvalid, c.HomeTopic)
		}
	}
	for i, b := range c.Backgrounds {
		if b.Key == "" {
			return fmt.Errorf("%w: background %d has no key", ErrInvalid, i)
		}
		if seen["b:"+b.Key] || b.Key == c.DefaultBackground.Key {
			return fmt.Errorf("%w: duplicate background key %q", ErrInvalid, b.Key)
		}
		seen["b:"+b.Key] = true
	}
	return nil
}
