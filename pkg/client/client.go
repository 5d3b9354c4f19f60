// Package client is a Go client for the murmur gateway HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/murmur/pkg/auth"
	"github.com/papercomputeco/murmur/pkg/llm"
)

// DefaultServerURL is where a locally started gateway listens.
const DefaultServerURL = "http://localhost:8000"

// APIError is a non-200 reply from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client calls a single gateway.
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client
}

// New creates a client for serverURL. token is sent with history requests.
// A zero timeout waits for as long as the backend takes.
func New(serverURL, token string, timeout time.Duration) *Client {
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ServerURL returns the gateway base URL.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Chat sends one turn and returns the reply. imageDataURL may be empty.
func (c *Client) Chat(ctx context.Context, sessionID, message, imageDataURL string) (string, error) {
	body, err := json.Marshal(llm.ChatRequest{
		SessionID:   sessionID,
		Message:     message,
		ImageBase64: imageDataURL,
	})
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	var result llm.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", bytes.NewReader(body), &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// History returns the non-system messages of a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	var result llm.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/history/"+sessionID, nil, &result); err != nil {
		return nil, err
	}
	return result.History, nil
}

// Health returns the number of live sessions.
func (c *Client) Health(ctx context.Context) (int, error) {
	var result struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return 0, err
	}
	return result.Sessions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(auth.Header, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp llm.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
