package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/llm"
)

var (
	// ErrNotRunning is returned when nothing listens at the configured URL.
	ErrNotRunning = errors.New("ollama not running")
	// ErrTimeout is returned when the request deadline passes.
	ErrTimeout = errors.New("ollama request timed out")
	// ErrRequestFailed is returned for transport failures and non-200 replies.
	ErrRequestFailed = errors.New("ollama request failed")
	// ErrMalformedResponse is returned when the reply carries no message.
	ErrMalformedResponse = errors.New("ollama returned a malformed response")
	// ErrModelNotFound is returned by Ping when a model is not installed.
	ErrModelNotFound = errors.New("model not available in ollama")
)

// Client talks to a single Ollama server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL. A zero timeout waits forever.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Vision models on CPU can take minutes per reply.
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends the full message sequence to model and returns the reply text.
func (c *Client) Chat(ctx context.Context, model string, messages []llm.Message) (string, error) {
	req := chatRequest{
		Model:    model,
		Messages: make([]message, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = message{Role: m.Role.String(), Content: m.Content}
		if m.HasImage() {
			req.Messages[i].Images = [][]byte{m.Image}
		}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + EndpointChat
	c.logger.Debug("sending chat request",
		zap.String("url", url),
		zap.String("model", model),
		zap.Int("message_count", len(messages)),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRequestFailed, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrRequestFailed, httpResp.StatusCode, truncate(string(body), 200))
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Message == nil {
		return "", fmt.Errorf("%w: no message", ErrMalformedResponse)
	}

	c.logger.Debug("received chat response",
		zap.String("model", resp.Model),
		zap.Int("eval_count", resp.EvalCount),
		zap.Duration("total_duration", time.Duration(resp.TotalDuration)),
	)

	return resp.Message.Content, nil
}

// Ping checks that the server answers and that every named model is installed.
func (c *Client) Ping(ctx context.Context, models ...string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+EndpointTags, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, httpResp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	installed := make(map[string]bool, len(tags.Models))
	for _, m := range tags.Models {
		installed[m.Name] = true
		// "llama3" is served as "llama3:latest".
		installed[strings.TrimSuffix(m.Name, ":latest")] = true
	}
	for _, m := range models {
		if !installed[m] {
			return fmt.Errorf("%w: %s (pull with: ollama pull %s)", ErrModelNotFound, m, m)
		}
	}
	return nil
}

// classifyError maps transport errors onto the package sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}

	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
