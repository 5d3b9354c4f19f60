package llm

import "time"

// Turn is a completed user/assistant exchange, as handed to the transcript archive.
type Turn struct {
	SessionID string        `json:"session_id"`
	Model     string        `json:"model"`
	User      Message       `json:"user"`
	Assistant Message       `json:"assistant"`
	Duration  time.Duration `json:"duration"`
}
