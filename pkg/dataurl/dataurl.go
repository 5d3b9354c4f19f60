// Package dataurl decodes the data-URL style image payloads sent by chat clients.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// DefaultMaxBytes is the largest decoded image accepted by default (5 MiB).
const DefaultMaxBytes = 5 * 1024 * 1024

var (
	// ErrMalformedPayload is returned when the payload is not "<header>,<base64 body>".
	ErrMalformedPayload = errors.New("malformed image payload")
	// ErrPayloadTooLarge is returned when the decoded image exceeds the size cap.
	ErrPayloadTooLarge = errors.New("image too large")
)

// Decode splits payload on its first comma, ignores the header and returns the
// base64-decoded body. Decoded images larger than max bytes are rejected.
func Decode(payload string, max int) ([]byte, error) {
	_, body, ok := strings.Cut(payload, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing ',' separator", ErrMalformedPayload)
	}

	body = strings.TrimSpace(body)
	enc := base64.StdEncoding
	if !strings.HasSuffix(body, "=") && len(body)%4 != 0 {
		enc = base64.RawStdEncoding
	}

	// Reject before allocating when even the most compact reading is too big.
	if enc.DecodedLen(len(body)) > max+2 {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, max)
	}

	data, err := enc.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if len(data) > max {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(data), max)
	}

	return data, nil
}

// Encode builds a data URL for raw bytes of the given MIME type.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ReadImage loads the image file at path as a data URL, sniffing its type.
func ReadImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read image: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s does not look like an image (%s)", path, mimeType)
	}
	return Encode(mimeType, data), nil
}
