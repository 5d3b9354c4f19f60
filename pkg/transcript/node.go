// Package transcript archives completed chat exchanges as hash-chained nodes.
//
// Every message of a session becomes a Node whose hash covers its content
// and its parent's hash, so a session's archive is a tamper-evident chain
// and identical prefixes deduplicate. The archive is write-mostly: nothing
// in it is loaded back into live sessions.
package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Entry is the archived form of one message.
type Entry struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
}

// Node is one content-addressed entry in a session chain.
type Node struct {
	// Hash is the SHA-256 of the entry and parent hash, hex-encoded.
	Hash string `json:"hash"`

	// ParentHash links to the previous message; nil for the first one.
	ParentHash *string `json:"parent_hash"`

	Entry Entry `json:"entry"`
}

type hashInput struct {
	Entry  Entry  `json:"entry"`
	Parent string `json:"parent,omitempty"`
}

// NewNode creates a node for entry chained after parent.
func NewNode(entry Entry, parent *Node) *Node {
	n := &Node{Entry: entry}
	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}
	n.Hash = n.computeHash()
	return n
}

// Verify reports whether the stored hash matches the node's content.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

func (n *Node) computeHash() string {
	in := hashInput{Entry: n.Entry}
	if n.ParentHash != nil {
		in.Parent = *n.ParentHash
	}

	// Entry has only string fields, so encoding cannot fail.
	data, _ := json.Marshal(in)

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
