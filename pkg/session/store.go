// Package session keeps per-session chat histories in memory.
//
// The Store maps caller-supplied identifiers to Sessions. Map access is
// serialized by a store-wide mutex that is only held for lookups and
// inserts; each Session carries its own lock so that turns on distinct
// sessions run concurrently while turns on the same session are serialized.
package session

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxHistory is the default window size in messages.
const DefaultMaxHistory = 10

// Options configures a Store.
type Options struct {
	// Directive seeds every new session as its only system message.
	Directive string

	// MaxHistory bounds each session's history, in messages.
	MaxHistory int

	// Policy selects the trim behavior; empty means TrimNaive.
	Policy TrimPolicy

	// MaxSessions bounds the number of sessions kept, evicting the least
	// recently used one. Zero keeps every session for the process lifetime.
	MaxSessions int
}

// Store is the process-wide session registry.
type Store struct {
	mu        sync.Mutex
	directive string
	window    Window
	index     index
}

// NewStore creates an empty Store.
func NewStore(opts Options) (*Store, error) {
	if opts.Policy == "" {
		opts.Policy = TrimNaive
	}
	if _, err := ParseTrimPolicy(string(opts.Policy)); err != nil {
		return nil, err
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}

	var idx index = mapIndex{}
	if opts.MaxSessions > 0 {
		cache, err := lru.New[string, *Session](opts.MaxSessions)
		if err != nil {
			return nil, fmt.Errorf("creating session cache: %w", err)
		}
		idx = lruIndex{cache: cache}
	}

	return &Store{
		directive: opts.Directive,
		window:    Window{Max: opts.MaxHistory, Policy: opts.Policy},
		index:     idx,
	}, nil
}

// GetOrCreate returns the session for id, creating it seeded with the
// current directive when id has not been seen.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.index.get(id); ok {
		return sess
	}

	sess := newSession(id, s.directive, s.window)
	s.index.add(id, sess)
	return sess
}

// Get returns the session for id without creating it.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.get(id)
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.len()
}

// SetDirective changes the directive used to seed sessions created from now on.
// Existing sessions keep the directive they were created with.
func (s *Store) SetDirective(directive string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directive = directive
}

// Window returns the trim configuration applied to every session.
func (s *Store) Window() Window {
	return s.window
}

type index interface {
	get(id string) (*Session, bool)
	add(id string, sess *Session)
	len() int
}

type mapIndex map[string]*Session

func (m mapIndex) get(id string) (*Session, bool) {
	sess, ok := m[id]
	return sess, ok
}

func (m mapIndex) add(id string, sess *Session) { m[id] = sess }

func (m mapIndex) len() int { return len(m) }

// lruIndex evicts the least recently referenced session once full. A turn
// already holding an evicted session finishes against the detached copy.
type lruIndex struct {
	cache *lru.Cache[string, *Session]
}

func (l lruIndex) get(id string) (*Session, bool) { return l.cache.Get(id) }

func (l lruIndex) add(id string, sess *Session) { l.cache.Add(id, sess) }

func (l lruIndex) len() int { return l.cache.Len() }
