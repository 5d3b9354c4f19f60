// Package llm provides the internal representations of chat turns exchanged
// between murmur clients, the session store and the inference backend.
package llm

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
