// Package auth implements the shared-secret gate in front of read endpoints.
package auth

import (
	"crypto/subtle"
	"errors"
	"sync/atomic"
)

// Header is the request header carrying the shared secret.
const Header = "x-auth"

// ErrUnauthorized is returned when the presented secret does not match.
var ErrUnauthorized = errors.New("unauthorized")

// Gate compares presented values against a shared secret.
// The secret can be replaced at runtime; Gate is safe for concurrent use.
type Gate struct {
	secret atomic.Pointer[string]
}

// NewGate creates a gate for secret.
func NewGate(secret string) *Gate {
	g := &Gate{}
	g.SetSecret(secret)
	return g
}

// SetSecret replaces the shared secret.
func (g *Gate) SetSecret(secret string) {
	g.secret.Store(&secret)
}

// Check returns ErrUnauthorized unless value equals the secret exactly.
// An empty secret never authorizes anything.
func (g *Gate) Check(value string) error {
	secret := *g.secret.Load()
	if secret == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(value), []byte(secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
