// Package id generates identifiers for recorded rows and simulation sessions.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// A Generator can generate IDs.
type Generator interface {
	// Generate an ID
	Generate() string
}

// NewSequential returns a generator that produces prefix1, prefix2, ... in
// order. The IDs are deterministic across runs.
func NewSequential(prefix string) Generator {
	return &sequentialIDGenerator{prefix: prefix}
}

// NewParallel returns a generator backed by xid. The IDs are globally unique
// but not deterministic.
func NewParallel() Generator {
	return parallelIDGenerator{}
}

type sequentialIDGenerator struct {
	prefix string
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return g.prefix + strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct {
}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
