package llm

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// HistoryResponse is the body returned by GET /history/:session_id.
// System messages are never included.
type HistoryResponse struct {
	History []Message `json:"history"`
}
