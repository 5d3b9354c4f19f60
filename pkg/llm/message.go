package llm

// ImageMarker is appended to a user message once its image bytes are released.
const ImageMarker = "[Image]"

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Image holds raw image bytes attached to a user turn. It is nil unless the
	// turn is still in flight; encoding/json renders it as base64.
	Image []byte `json:"image,omitempty"`
}

// HasImage reports whether the message still carries image bytes.
func (m Message) HasImage() bool {
	return m.Image != nil
}

// ReleaseImage drops the image bytes and tags the content with ImageMarker.
// It is a no-op for messages without an image.
func (m *Message) ReleaseImage() {
	if m.Image == nil {
		return
	}
	m.Image = nil
	m.Content += " " + ImageMarker
}
