package session

import (
	"fmt"

	"github.com/papercomputeco/murmur/pkg/llm"
)

// TrimPolicy selects how a history is cut down to the window size.
type TrimPolicy string

const (
	// TrimNaive keeps the most recent entries, whatever their role. A long
	// conversation eventually ages the system directive out of the window.
	TrimNaive TrimPolicy = "naive"

	// TrimPinned keeps a leading system message at index 0 and applies the
	// window to the remaining entries.
	TrimPinned TrimPolicy = "pinned"
)

// ParseTrimPolicy converts a config value into a TrimPolicy. Empty means TrimNaive.
func ParseTrimPolicy(s string) (TrimPolicy, error) {
	switch TrimPolicy(s) {
	case "", TrimNaive:
		return TrimNaive, nil
	case TrimPinned:
		return TrimPinned, nil
	}
	return "", fmt.Errorf("unknown trim policy %q", s)
}

// Trim returns history cut down to at most max entries according to policy.
// The input is never modified; a trimmed result is a fresh slice so evicted
// messages can be collected. A non-positive max disables trimming.
func Trim(history []llm.Message, max int, policy TrimPolicy) []llm.Message {
	if max <= 0 || len(history) <= max {
		return history
	}

	if policy == TrimPinned && history[0].Role == llm.RoleSystem {
		out := make([]llm.Message, 0, max)
		out = append(out, history[0])
		return append(out, history[len(history)-(max-1):]...)
	}

	out := make([]llm.Message, max)
	copy(out, history[len(history)-max:])
	return out
}
