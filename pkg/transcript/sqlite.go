package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	hash        TEXT PRIMARY KEY,
	parent_hash TEXT,
	entry       TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS nodes_parent_hash ON nodes(parent_hash);
`

// SQLiteStorer keeps nodes in a SQLite database.
type SQLiteStorer struct {
	db *sql.DB
}

// NewSQLiteStorer opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStorer(path string) (*SQLiteStorer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStorer{db: db}, nil
}

func (s *SQLiteStorer) Put(ctx context.Context, node *Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	entry, err := json.Marshal(node.Entry)
	if err != nil {
		return false, fmt.Errorf("marshal entry: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO nodes (hash, parent_hash, entry) VALUES (?, ?, ?)`,
		node.Hash, node.ParentHash, string(entry),
	)
	if err != nil {
		return false, fmt.Errorf("inserting node: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting node: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStorer) Get(ctx context.Context, hash string) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, parent_hash, entry FROM nodes WHERE hash = ?`, hash)

	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound{Hash: hash}
	}
	return node, err
}

func (s *SQLiteStorer) List(ctx context.Context) ([]*Node, error) {
	return s.query(ctx, `SELECT hash, parent_hash, entry FROM nodes ORDER BY rowid`)
}

func (s *SQLiteStorer) Leaves(ctx context.Context) ([]*Node, error) {
	return s.query(ctx, `
		SELECT n.hash, n.parent_hash, n.entry FROM nodes n
		WHERE NOT EXISTS (SELECT 1 FROM nodes c WHERE c.parent_hash = n.hash)
		ORDER BY n.rowid`)
}

func (s *SQLiteStorer) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorer) query(ctx context.Context, q string) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*Node{}
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(sc scanner) (*Node, error) {
	var (
		node   Node
		parent sql.NullString
		entry  string
	)
	if err := sc.Scan(&node.Hash, &parent, &entry); err != nil {
		return nil, err
	}
	if parent.Valid {
		node.ParentHash = &parent.String
	}
	if err := json.Unmarshal([]byte(entry), &node.Entry); err != nil {
		return nil, fmt.Errorf("decoding entry %s: %w", node.Hash, err)
	}
	return &node, nil
}
