package gateway

// Config is the gateway server configuration.
type Config struct {
	// Address to listen on (e.g., ":8000")
	ListenAddr string

	// TextModel answers turns without an image; VisionModel turns with one.
	TextModel   string
	VisionModel string

	// MaxImageBytes caps the decoded size of an attached image.
	MaxImageBytes int

	// StaticDir is served under /static when non-empty.
	StaticDir string

	// Version is reported by the MCP endpoint.
	Version string
}

// modelFor selects the backend model for a turn. The choice is made per
// turn, so one session can alternate between models.
func (c Config) modelFor(hasImage bool) string {
	if hasImage {
		return c.VisionModel
	}
	return c.TextModel
}

// bodyLimit is large enough for a maximal base64 image plus the JSON around it.
func (c Config) bodyLimit() int {
	return (c.MaxImageBytes+2)/3*4 + 64*1024
}
