package transcript

import "context"

// Storer persists nodes. Implementations are safe for concurrent use.
type Storer interface {
	// Put stores a node and reports whether it was new. Storing a node whose
	// hash already exists is a no-op.
	Put(ctx context.Context, node *Node) (bool, error)

	// Get retrieves a node by hash, returning ErrNotFound when absent.
	Get(ctx context.Context, hash string) (*Node, error)

	// List returns every node in insertion order.
	List(ctx context.Context) ([]*Node, error)

	// Leaves returns the nodes no other node points at, i.e. chain heads.
	Leaves(ctx context.Context) ([]*Node, error)

	// Close releases any resources held by the storer.
	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}
	return "node not found: " + e.Hash
}

// Ancestry returns the chain ending at hash, oldest first.
func Ancestry(ctx context.Context, s Storer, hash string) ([]*Node, error) {
	var chain []*Node
	for next := &hash; next != nil; {
		node, err := s.Get(ctx, *next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, node)
		next = node.ParentHash
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
