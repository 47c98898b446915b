package ftl

import (
	"github.com/sarchlab/ftlsim/flash/nand"
)

// A VictimFinder decides which block garbage collection reclaims.
type VictimFinder interface {
	// Name returns the policy name used in configuration.
	Name() string

	// FindVictim returns the index of the block to reclaim. Only blocks that
	// are not active, not Free, not bad and whose valid pages fit into
	// maxValidPages can be chosen.
	FindVictim(
		blocks []*nand.Block,
		activeIdx int,
		maxValidPages int,
	) (int, bool)
}

// GreedyVictimFinder reclaims the block with the fewest valid pages, which
// minimizes the number of pages that have to be migrated.
type GreedyVictimFinder struct {
}

// NewGreedyVictimFinder creates a new GreedyVictimFinder.
func NewGreedyVictimFinder() *GreedyVictimFinder {
	return &GreedyVictimFinder{}
}

// Name returns "greedy".
func (f *GreedyVictimFinder) Name() string {
	return VictimFinderGreedy
}

// FindVictim returns the eligible block with the fewest valid pages. Ties go
// to the lowest index.
func (f *GreedyVictimFinder) FindVictim(
	blocks []*nand.Block,
	activeIdx int,
	maxValidPages int,
) (int, bool) {
	found := false
	bestIdx := 0

	for i, b := range blocks {
		if !isReclaimable(b, i, activeIdx, maxValidPages) {
			continue
		}

		if !found || b.CountValidPages() < blocks[bestIdx].CountValidPages() {
			bestIdx = i
			found = true
		}
	}

	return bestIdx, found
}

// WearAwareVictimFinder behaves like the greedy finder but breaks ties in
// favor of less-worn blocks. When the erase count of the coldest reclaimable
// block lags the most-worn block by more than Threshold, the cold block is
// reclaimed instead so that the static data it holds moves onto worn blocks.
type WearAwareVictimFinder struct {
	Threshold int
}

// NewWearAwareVictimFinder creates a WearAwareVictimFinder with the given
// erase-count gap threshold.
func NewWearAwareVictimFinder(threshold int) *WearAwareVictimFinder {
	return &WearAwareVictimFinder{Threshold: threshold}
}

// Name returns "wear-aware".
func (f *WearAwareVictimFinder) Name() string {
	return VictimFinderWearAware
}

// FindVictim returns the block to reclaim.
func (f *WearAwareVictimFinder) FindVictim(
	blocks []*nand.Block,
	activeIdx int,
	maxValidPages int,
) (int, bool) {
	coldIdx, found := f.findColdest(blocks, activeIdx, maxValidPages)
	if !found {
		return 0, false
	}

	if maxEraseCount(blocks)-blocks[coldIdx].EraseCount() > f.Threshold {
		return coldIdx, true
	}

	return f.findCheapest(blocks, activeIdx, maxValidPages)
}

func (f *WearAwareVictimFinder) findColdest(
	blocks []*nand.Block,
	activeIdx int,
	maxValidPages int,
) (int, bool) {
	found := false
	bestIdx := 0

	for i, b := range blocks {
		if !isReclaimable(b, i, activeIdx, maxValidPages) {
			continue
		}

		best := blocks[bestIdx]
		if !found ||
			b.EraseCount() < best.EraseCount() ||
			(b.EraseCount() == best.EraseCount() &&
				b.CountValidPages() < best.CountValidPages()) {
			bestIdx = i
			found = true
		}
	}

	return bestIdx, found
}

func (f *WearAwareVictimFinder) findCheapest(
	blocks []*nand.Block,
	activeIdx int,
	maxValidPages int,
) (int, bool) {
	found := false
	bestIdx := 0

	for i, b := range blocks {
		if !isReclaimable(b, i, activeIdx, maxValidPages) {
			continue
		}

		best := blocks[bestIdx]
		if !found ||
			b.CountValidPages() < best.CountValidPages() ||
			(b.CountValidPages() == best.CountValidPages() &&
				b.EraseCount() < best.EraseCount()) {
			bestIdx = i
			found = true
		}
	}

	return bestIdx, found
}

func isReclaimable(b *nand.Block, idx, activeIdx, maxValidPages int) bool {
	if idx == activeIdx || b.IsBad() || b.State() == nand.BlockFree {
		return false
	}

	return b.CountValidPages() <= maxValidPages
}

func maxEraseCount(blocks []*nand.Block) int {
	maxCount := 0

	for _, b := range blocks {
		if !b.IsBad() && b.EraseCount() > maxCount {
			maxCount = b.EraseCount()
		}
	}

	return maxCount
}
