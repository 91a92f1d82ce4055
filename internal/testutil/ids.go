// Package testutil holds helpers shared by package tests: deterministic run
// IDs, golden-file assertions and quiet loggers.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "run-000001", "run-000002", ... for deterministic
// run identifiers in tests.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%06d", g.prefix, g.seq)
}

// Reset restarts the sequence so the same test can run twice with
// identical IDs.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedID returns the same identifier on every call.
type FixedID string

// Generate returns the fixed identifier.
func (f FixedID) Generate() string { return string(f) }
