// Package ollama is a minimal client for the Ollama chat API.
package ollama

import "time"

// DefaultBaseURL is where a local Ollama server listens.
const DefaultBaseURL = "http://localhost:11434"

// API endpoints
const (
	EndpointChat = "/api/chat"
	EndpointTags = "/api/tags"
)

// message is a chat message as Ollama expects it. Images are raw bytes;
// encoding/json renders them as the base64 strings the API wants.
type message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  [][]byte `json:"images,omitempty"`
}

// chatRequest is the body of POST /api/chat. No generation options are
// sent, so the model's defaults apply.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse is a non-streaming /api/chat response.
type chatResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   *message  `json:"message"`
	Done      bool      `json:"done"`

	TotalDuration int64 `json:"total_duration,omitempty"`
	EvalCount     int   `json:"eval_count,omitempty"`
}

// tagsResponse lists the models installed on the server.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
