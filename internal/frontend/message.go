// Package frontend is the websocket channel to the kiosk browser. The browser
// renders cues and media and reports visitor input back.
package frontend

import (
	"fmt"
	"strings"

	"kiosk/agent/internal/orchestrator"
)

// Message is the envelope in both directions.
type Message struct {
	Type      string         `json:"type"`
	TsMs      int64          `json:"ts_ms"`
	SessionID string         `json:"session_id"`
	Seq       int64          `json:"seq"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Outbound message types.
const (
	TypeCue       = "cue"
	TypePresent   = "present"
	TypeHideMedia = "hide_media"
	TypeSpeak     = "speak"
	TypeInterrupt = "interrupt"
	// TypeAvatarStream tells the screen which server-opened avatar stream
	// to join.
	TypeAvatarStream = "avatar_stream"
)

// Inbound message types.
const (
	TypeInput         = "input"
	TypeSelectModule  = "select_module"
	TypeSelectTopic   = "select_topic"
	TypeConfirm       = "confirm"
	TypeMediaEnded    = "media_ended"
	TypeCloseMedia    = "close_media"
	TypeActivity      = "activity"
	TypeEnd           = "end"
	TypeAvatarSession = "avatar_session"
	TypeStart         = "start"
)

// ToEvent maps an inbound message to a session event. start and
// avatar_session are not events and are handled by the Server itself.
func ToEvent(m Message) (orchestrator.Event, error) {
	switch m.Type {
	case TypeInput:
		return orchestrator.UserInput{Text: str(m.Payload, "text")}, nil
	case TypeSelectModule:
		return orchestrator.SelectModule{Key: str(m.Payload, "key")}, nil
	case TypeSelectTopic:
		return orchestrator.SelectTopic{Key: str(m.Payload, "key")}, nil
	case TypeConfirm:
		switch strings.ToLower(str(m.Payload, "answer")) {
		case "yes":
			return orchestrator.ConfirmYes{}, nil
		case "no":
			return orchestrator.ConfirmNo{}, nil
		}
		return nil, fmt.Errorf("confirm: answer must be yes or no")
	case TypeMediaEnded:
		inst, ok := num(m.Payload, "instance")
		if !ok {
			return nil, fmt.Errorf("media_ended: missing instance")
		}
		return orchestrator.MediaEnded{Instance: inst}, nil
	case TypeCloseMedia:
		return orchestrator.CloseMedia{}, nil
	case TypeActivity:
		return orchestrator.Activity{}, nil
	case TypeEnd:
		return orchestrator.EndSession{}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", m.Type)
}

func str(p map[string]any, k string) string {
	s, _ := p[k].(string)
	return s
}

func num(p map[string]any, k string) (uint64, bool) {
	switch v := p[k].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		return uint64(v), v >= 0
	case uint64:
		return v, true
	}
	return 0, false
}
