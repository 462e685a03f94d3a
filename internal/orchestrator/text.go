package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/textmatch"
)

// Estimated speaking delay: the avatar gives no completion signal for
// repeat tasks, so the confirmation prompt waits for words/rate clamped
// to [MinSpeechDelay, MaxSpeechDelay].
const (
	SpeechWordsPerSecond = 2.2
	MinSpeechDelay       = 1200 * time.Millisecond
	MaxSpeechDelay       = 6000 * time.Millisecond
)

// EstimateSpeech returns how long the avatar is assumed to take to say text.
func EstimateSpeech(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / SpeechWordsPerSecond * float64(time.Second))
	return min(max(d, MinSpeechDelay), MaxSpeechDelay)
}

var greeting = []string{
	"Hi there! How are you? I hope you're doing good.",
	"What is your name, and where are you studying?",
}

const (
	msgNoInfo        = "There isn't enough information for that."
	msgPresentFailed = "I couldn't load the module video. Please try again."
	msgSkipVideo     = "Okay, I'll skip the video. What would you like next?"
	msgMediaEnded    = "The video has finished. What would you like to do next?"
	msgMediaFallback = "The video has finished. What would you like next?"
	msgMediaClosed   = "Closed the video. What would you like to do next?"
	msgStillThere    = "Are you still there?"
)

func msgBackgroundAck(label string) string {
	return fmt.Sprintf("Glad to hear from the great %s.", label)
}

func msgChoices(org string) string {
	return fmt.Sprintf("What would you like to know: %s topics or ERP training?", org)
}

func msgTopic(t catalog.Topic) string {
	if t.URL == "" {
		return t.Summary
	}
	return fmt.Sprintf("%s You can learn more here: %s", t.Summary, t.URL)
}

func msgTopicFollowUp(org string) string {
	return fmt.Sprintf("Would you like to hear about ERP training as well, or explore another %s topic?", org)
}

func msgFallback(org string) string {
	return fmt.Sprintf("There isn't enough information for that. Try asking about %s or ERP Module 1/2.", org)
}

func msgConfirm(m catalog.Module) string {
	return fmt.Sprintf("Would you like to watch %s?", m.Title)
}

var (
	affirmatives = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "y", "play", "play it", "please", "yes please", "go ahead"}
	negatives    = []string{"no", "nope", "n", "skip", "skip it", "not now", "no thanks", "no thank you"}
)

// confirmAnswer classifies a spoken reply to the yes/no prompt. Longer
// utterances are only treated as an answer when they lead with yes or no.
func confirmAnswer(text string) (yes, no bool) {
	t := textmatch.Normalize(text)
	for _, a := range affirmatives {
		if t == a {
			return true, false
		}
	}
	for _, n := range negatives {
		if t == n {
			return false, true
		}
	}
	toks := textmatch.Tokens(t)
	if len(toks) == 0 || len(toks) > 3 {
		return false, false
	}
	switch toks[0] {
	case "yes", "yeah", "yep", "sure", "okay":
		return true, false
	case "no", "nope":
		return false, true
	}
	return false, false
}
