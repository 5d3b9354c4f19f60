package transcript

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/llm"
)

// Recorder appends completed turns to per-session chains in a Storer.
type Recorder struct {
	storer Storer
	logger *zap.Logger

	mu    sync.Mutex
	heads map[string]*Node
}

// NewRecorder creates a Recorder writing to storer.
func NewRecorder(storer Storer, logger *zap.Logger) *Recorder {
	return &Recorder{
		storer: storer,
		logger: logger,
		heads:  make(map[string]*Node),
	}
}

// Storer returns the underlying storer.
func (r *Recorder) Storer() Storer {
	return r.storer
}

// Record appends the user and assistant messages of turn to the session's
// chain and returns the new head hash. Image bytes are never archived.
func (r *Recorder) Record(ctx context.Context, turn llm.Turn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := r.heads[turn.SessionID]
	for _, m := range []llm.Message{turn.User, turn.Assistant} {
		node := NewNode(Entry{
			SessionID: turn.SessionID,
			Role:      m.Role.String(),
			Content:   m.Content,
			Model:     turn.Model,
		}, parent)

		isNew, err := r.storer.Put(ctx, node)
		if err != nil {
			return "", fmt.Errorf("storing %s node: %w", m.Role, err)
		}

		r.logger.Debug("archived message",
			zap.String("session_id", turn.SessionID),
			zap.String("hash", node.Hash[:16]),
			zap.Bool("new", isNew),
		)
		parent = node
	}

	r.heads[turn.SessionID] = parent
	return parent.Hash, nil
}

// Close closes the underlying storer.
func (r *Recorder) Close() error {
	return r.storer.Close()
}
