package ftl

import (
	"github.com/sarchlab/ftlsim/flash/nand"
)

// An Allocator decides which Free block becomes the next active block.
type Allocator interface {
	// Name returns the policy name used in configuration.
	Name() string

	// NextFreeBlock returns the index of a Free, healthy block that is not the
	// active block.
	NextFreeBlock(blocks []*nand.Block, activeIdx int) (int, bool)
}

// SequentialAllocator picks the lowest-indexed Free block.
type SequentialAllocator struct {
}

// NewSequentialAllocator creates a new SequentialAllocator.
func NewSequentialAllocator() *SequentialAllocator {
	return &SequentialAllocator{}
}

// Name returns "sequential".
func (a *SequentialAllocator) Name() string {
	return AllocatorSequential
}

// NextFreeBlock returns the first allocatable block.
func (a *SequentialAllocator) NextFreeBlock(
	blocks []*nand.Block,
	activeIdx int,
) (int, bool) {
	for i, b := range blocks {
		if isAllocatable(b, i, activeIdx) {
			return i, true
		}
	}

	return 0, false
}

// LeastWornAllocator picks the Free block with the lowest erase count, so
// that erases spread evenly over the device.
type LeastWornAllocator struct {
}

// NewLeastWornAllocator creates a new LeastWornAllocator.
func NewLeastWornAllocator() *LeastWornAllocator {
	return &LeastWornAllocator{}
}

// Name returns "least-worn".
func (a *LeastWornAllocator) Name() string {
	return AllocatorLeastWorn
}

// NextFreeBlock returns the allocatable block with the fewest erases. Ties go
// to the lowest index.
func (a *LeastWornAllocator) NextFreeBlock(
	blocks []*nand.Block,
	activeIdx int,
) (int, bool) {
	found := false
	bestIdx := 0

	for i, b := range blocks {
		if !isAllocatable(b, i, activeIdx) {
			continue
		}

		if !found || b.EraseCount() < blocks[bestIdx].EraseCount() {
			bestIdx = i
			found = true
		}
	}

	return bestIdx, found
}

func isAllocatable(b *nand.Block, idx, activeIdx int) bool {
	return idx != activeIdx && !b.IsBad() && b.State() == nand.BlockFree
}
