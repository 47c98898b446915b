package ftl

import (
	"errors"
	"fmt"

	"github.com/sarchlab/ftlsim/flash/nand"
)

// Validate checks the invariants that tie the mapping table, the blocks and
// the counters together. It returns nil if the device is consistent.
func (c *Comp) Validate() error {
	var errs []error

	if c.nandWrites < c.userWrites {
		errs = append(errs, fmt.Errorf(
			"NAND writes (%d) are fewer than user writes (%d)",
			c.nandWrites, c.userWrites))
	}

	owners := make(map[nand.PhysicalAddress]int)

	for _, e := range c.mapping.Entries() {
		pba := nand.PhysicalAddress{BlockID: e.BlockID, PageOffset: e.PageOffset}

		if other, taken := owners[pba]; taken {
			errs = append(errs, fmt.Errorf(
				"LBAs %d and %d both map to %s", other, e.LBA, pba))

			continue
		}

		owners[pba] = e.LBA

		if pba.BlockID < 0 || pba.BlockID >= len(c.blocks) ||
			pba.PageOffset < 0 || pba.PageOffset >= c.pagesPerBlock {
			errs = append(errs, fmt.Errorf(
				"LBA %d maps outside the device: %s", e.LBA, pba))

			continue
		}

		page := c.blocks[pba.BlockID].Read(pba.PageOffset)
		if page.State != nand.PageValid {
			errs = append(errs, fmt.Errorf(
				"LBA %d maps to a %s page at %s", e.LBA, page.State, pba))
		}
	}

	errs = append(errs, c.validateBlocks(len(owners))...)

	return errors.Join(errs...)
}

func (c *Comp) validateBlocks(numOwned int) []error {
	var errs []error

	totalValid := 0

	for _, b := range c.blocks {
		valid, free := 0, 0

		for i := 0; i < b.NumPages(); i++ {
			switch b.Read(i).State {
			case nand.PageValid:
				valid++
			case nand.PageFree:
				free++
			}
		}

		if valid != b.CountValidPages() || free != b.CountFreePages() {
			errs = append(errs, fmt.Errorf(
				"block %d counts %d valid and %d free pages, found %d and %d",
				b.ID(), b.CountValidPages(), b.CountFreePages(), valid, free))
		}

		errs = append(errs, blockStateError(b, free)...)
		totalValid += valid
	}

	if len(errs) == 0 && totalValid != numOwned {
		errs = append(errs, fmt.Errorf(
			"%d valid pages but %d mapped LBAs", totalValid, numOwned))
	}

	return errs
}

func blockStateError(b *nand.Block, free int) []error {
	var want nand.BlockState

	switch free {
	case b.NumPages():
		want = nand.BlockFree
	case 0:
		want = nand.BlockFull
	default:
		want = nand.BlockActive
	}

	if b.State() != want {
		return []error{fmt.Errorf("block %d is %s but has %d free pages",
			b.ID(), b.State(), free)}
	}

	return nil
}
