package session

import (
	"sync"

	"github.com/papercomputeco/murmur/pkg/llm"
)

// Window is the trim configuration applied after every append.
type Window struct {
	Max    int
	Policy TrimPolicy
}

// Session is one conversation's history.
//
// A Session is not safe for concurrent use on its own: callers hold Lock
// around any sequence of reads and writes, including the backend call of a
// chat turn. Only ID is safe without the lock.
type Session struct {
	mu       sync.Mutex
	id       string
	window   Window
	messages []llm.Message
}

func newSession(id, directive string, window Window) *Session {
	return &Session{
		id:       id,
		window:   window,
		messages: []llm.Message{{Role: llm.RoleSystem, Content: directive}},
	}
}

// Lock acquires exclusive access to the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases exclusive access to the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// ID returns the caller-supplied session identifier.
func (s *Session) ID() string { return s.id }

// Append adds msg and trims the history to the window.
func (s *Session) Append(msg llm.Message) {
	s.messages = append(s.messages, msg)
	s.messages = Trim(s.messages, s.window.Max, s.window.Policy)
}

// Len returns the number of stored messages, system directive included.
func (s *Session) Len() int {
	return len(s.messages)
}

// Messages returns a copy of the full history as sent to the backend.
func (s *Session) Messages() []llm.Message {
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Conversation returns a copy of the history without system messages.
func (s *Session) Conversation() []llm.Message {
	out := make([]llm.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Role == llm.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ReleaseImages drops image bytes still held by any message, tagging each
// affected message with llm.ImageMarker. It returns how many were released.
func (s *Session) ReleaseImages() int {
	released := 0
	for i := range s.messages {
		if s.messages[i].HasImage() {
			s.messages[i].ReleaseImage()
			released++
		}
	}
	return released
}
