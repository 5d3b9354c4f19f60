package llm

// DefaultImagePrompt is used as the user content when a turn has no text.
const DefaultImagePrompt = "Analyze the image."

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID   string `json:"session_id"`
	Message     string `json:"message,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"` // data URL, e.g. "data:image/png;base64,...."
}

// UserContent returns the text stored for the user turn.
func (r ChatRequest) UserContent() string {
	if r.Message == "" {
		return DefaultImagePrompt
	}
	return r.Message
}

// HasImage reports whether the request carries an image payload.
func (r ChatRequest) HasImage() bool {
	return r.ImageBase64 != ""
}
