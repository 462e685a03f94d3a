package types

import "time"

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Session is the registry record of one kiosk visit.
type Session struct {
	ID           string     `json:"session_id"`
	Organization string     `json:"organization"`
	Source       string     `json:"source"` // "ws" | "grpc" | "console"
	CreatedAt    time.Time  `json:"created_at"`
	Status       string     `json:"status"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}
