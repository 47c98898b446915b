// Package ftl implements a page-mapped flash translation layer on top of the
// NAND model in package nand.
package ftl

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/ftlsim/flash/nand"
	"github.com/sarchlab/ftlsim/sim/hooking"
)

// ErrDeviceFull is returned by Write when no Free block is left even after
// garbage collection.
var ErrDeviceFull = errors.New("device is full")

var errActiveBlockFull = errors.New("active block is full")

// A Comp is a flash translation layer controller. It owns the physical blocks
// and the mapping table, and it is not safe for concurrent use.
type Comp struct {
	hooking.HookableBase

	name         string
	serialNumber string

	pagesPerBlock int
	blocks        []*nand.Block
	mapping       *MappingTable

	activeBlockIdx int

	allocator    Allocator
	victimFinder VictimFinder

	userWrites      uint64
	nandWrites      uint64
	gcCount         uint64
	gcNoVictimCount uint64
	migratedPages   uint64
	inGC            bool
}

// Name returns the name of the device.
func (c *Comp) Name() string {
	return c.name
}

// SerialNumber returns the serial number of the device.
func (c *Comp) SerialNumber() string {
	return c.serialNumber
}

// NumBlocks returns the number of physical blocks.
func (c *Comp) NumBlocks() int {
	return len(c.blocks)
}

// PagesPerBlock returns the page capacity of each block.
func (c *Comp) PagesPerBlock() int {
	return c.pagesPerBlock
}

// NumLBAs returns the logical capacity of the device.
func (c *Comp) NumLBAs() int {
	return c.mapping.NumLBAs()
}

// ActiveBlock returns the index of the block that receives new writes.
func (c *Comp) ActiveBlock() int {
	return c.activeBlockIdx
}

// UserWrites returns the number of host writes that have landed.
func (c *Comp) UserWrites() uint64 {
	return c.userWrites
}

// NANDWrites returns the number of physical page programs, including the ones
// caused by garbage collection.
func (c *Comp) NANDWrites() uint64 {
	return c.nandWrites
}

// GCCount returns the number of garbage collection passes that reclaimed a
// block.
func (c *Comp) GCCount() uint64 {
	return c.gcCount
}

// WAF returns the write amplification factor. It is 0 before any host write.
func (c *Comp) WAF() float64 {
	if c.userWrites == 0 {
		return 0
	}

	return float64(c.nandWrites) / float64(c.userWrites)
}

// Write stores data at the given LBA. It returns ErrDeviceFull if the device
// has no space left even after garbage collection.
func (c *Comp) Write(lba int, data uint32) error {
	c.mapping.lbaMustBeInRange(lba)

	if c.countFreeBlocks() <= 1 {
		c.GC()
	}

	err := c.writeInternal(lba, data)
	if errors.Is(err, errActiveBlockFull) {
		if !c.switchActiveBlock() {
			c.InvokeHook(hooking.HookCtx{
				Domain: c,
				Pos:    HookPosDeviceFull,
				Detail: lba,
			})

			return fmt.Errorf("%s: writing LBA %d: %w", c.name, lba, ErrDeviceFull)
		}

		err = c.writeInternal(lba, data)
	}

	if err != nil {
		log.Panicf("%s: writing LBA %d to fresh block %d: %v",
			c.name, lba, c.activeBlockIdx, err)
	}

	c.userWrites++

	return nil
}

// writeInternal programs the first Free page of the active block and remaps
// the LBA. Both host writes and garbage collection migrations go through here,
// so it never touches the user write counter.
func (c *Comp) writeInternal(lba int, data uint32) error {
	block := c.blocks[c.activeBlockIdx]
	if block.IsBad() {
		return errActiveBlockFull
	}

	offset, ok := block.FirstFreeOffset()
	if !ok {
		return errActiveBlockFull
	}

	block.Program(offset, data)
	c.nandWrites++

	pba := nand.PhysicalAddress{BlockID: block.ID(), PageOffset: offset}
	if old, hadOld := c.mapping.Update(lba, pba); hadOld {
		c.invalidate(old)
	}

	return nil
}

func (c *Comp) invalidate(pba nand.PhysicalAddress) {
	c.blockMustExist(pba.BlockID)
	c.blocks[pba.BlockID].Invalidate(pba.PageOffset)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosPageInvalidated,
		Detail: pba,
	})
}

func (c *Comp) switchActiveBlock() bool {
	next, ok := c.allocator.NextFreeBlock(c.blocks, c.activeBlockIdx)
	if !ok {
		return false
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosActiveBlockSwitch,
		Detail: ActiveBlockSwitch{
			From:     c.activeBlockIdx,
			To:       next,
			DuringGC: c.inGC,
		},
	})

	c.activeBlockIdx = next

	return true
}

// GC runs one garbage collection pass. It returns false if there was no block
// worth reclaiming.
func (c *Comp) GC() bool {
	if c.inGC {
		log.Panicf("%s: garbage collection must not recurse", c.name)
	}

	c.inGC = true
	defer func() { c.inGC = false }()

	start := GCStart{
		FreeBlocks: c.countFreeBlocks(),
		ActiveIdx:  c.activeBlockIdx,
	}
	c.InvokeHook(hooking.HookCtx{Domain: c, Pos: HookPosGCStart, Detail: start})

	victimIdx, ok := c.victimFinder.FindVictim(
		c.blocks, c.activeBlockIdx, c.freePageBudget())
	if !ok {
		c.gcNoVictimCount++
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosGCNoVictim,
			Detail: start,
		})

		return false
	}

	victim := c.blocks[victimIdx]
	c.victimMustBeReclaimable(victimIdx)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosGCVictim,
		Item:   victim,
		Detail: VictimSelected{
			BlockID:    victim.ID(),
			ValidPages: victim.CountValidPages(),
			EraseCount: victim.EraseCount(),
		},
	})

	migrated := c.migrateValidPages(victim)
	c.eraseBlock(victim)

	c.gcCount++
	c.migratedPages += uint64(migrated)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosGCEnd,
		Item:   victim,
		Detail: GCReport{
			Seq:              c.gcCount,
			VictimID:         victim.ID(),
			MigratedPages:    migrated,
			FreeBlocksBefore: start.FreeBlocks,
			FreeBlocksAfter:  c.countFreeBlocks(),
			UserWrites:       c.userWrites,
			NANDWrites:       c.nandWrites,
		},
	})

	return true
}

func (c *Comp) victimMustBeReclaimable(idx int) {
	c.blockMustExist(idx)

	b := c.blocks[idx]
	if idx == c.activeBlockIdx || b.State() == nand.BlockFree || b.IsBad() {
		log.Panicf("%s: %s chose block %d (%s, bad=%t, active=%d) as victim",
			c.name, c.victimFinder.Name(), idx, b.State(), b.IsBad(),
			c.activeBlockIdx)
	}
}

func (c *Comp) migrateValidPages(victim *nand.Block) int {
	migrated := 0

	for offset := 0; offset < victim.NumPages(); offset++ {
		page := victim.Read(offset)
		if page.State != nand.PageValid {
			continue
		}

		pba := nand.PhysicalAddress{BlockID: victim.ID(), PageOffset: offset}

		lba, found := c.mapping.FindLBA(pba)
		if !found {
			log.Panicf("%s: valid page %s has no LBA", c.name, pba)
		}

		c.migrate(lba, page.Content)
		migrated++
	}

	return migrated
}

func (c *Comp) migrate(lba int, data uint32) {
	err := c.writeInternal(lba, data)
	if errors.Is(err, errActiveBlockFull) {
		if !c.switchActiveBlock() {
			log.Panicf("%s: no space left while migrating LBA %d", c.name, lba)
		}

		err = c.writeInternal(lba, data)
	}

	if err != nil {
		log.Panicf("%s: migrating LBA %d: %v", c.name, lba, err)
	}
}

func (c *Comp) eraseBlock(b *nand.Block) {
	err := b.Erase()
	if err != nil {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosBadBlockErase,
			Item:   b,
			Detail: err,
		})

		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosBlockErased,
		Item:   b,
		Detail: BlockErased{BlockID: b.ID(), EraseCount: b.EraseCount()},
	})
}

// countFreeBlocks counts healthy Free blocks, including the active block if
// nothing has been written to it yet.
func (c *Comp) countFreeBlocks() int {
	count := 0

	for _, b := range c.blocks {
		if !b.IsBad() && b.State() == nand.BlockFree {
			count++
		}
	}

	return count
}

// freePageBudget is the number of pages that can still be programmed without
// reclaiming anything.
func (c *Comp) freePageBudget() int {
	budget := 0

	for i, b := range c.blocks {
		if b.IsBad() {
			continue
		}

		if i == c.activeBlockIdx || b.State() == nand.BlockFree {
			budget += b.CountFreePages()
		}
	}

	return budget
}

// Read returns the data stored at an LBA.
func (c *Comp) Read(lba int) (uint32, bool) {
	pba, ok := c.mapping.Get(lba)
	if !ok {
		return 0, false
	}

	return c.blocks[pba.BlockID].Read(pba.PageOffset).Content, true
}

// Trim unmaps an LBA and invalidates its page. Trimming an unmapped LBA does
// nothing.
func (c *Comp) Trim(lba int) {
	if old, hadOld := c.mapping.Unmap(lba); hadOld {
		c.invalidate(old)
	}
}

// Lookup returns the physical address an LBA is mapped to.
func (c *Comp) Lookup(lba int) (nand.PhysicalAddress, bool) {
	return c.mapping.Get(lba)
}

// ReadPhysical returns a copy of the page at a physical address.
func (c *Comp) ReadPhysical(pba nand.PhysicalAddress) nand.Page {
	c.blockMustExist(pba.BlockID)

	return c.blocks[pba.BlockID].Read(pba.PageOffset)
}

// MarkBad retires a Free block. Bad blocks are never allocated or reclaimed.
func (c *Comp) MarkBad(blockID int) {
	c.blockMustExist(blockID)

	b := c.blocks[blockID]
	if blockID == c.activeBlockIdx {
		log.Panicf("%s: cannot mark the active block %d bad", c.name, blockID)
	}

	if b.State() != nand.BlockFree {
		log.Panicf("%s: cannot mark %s block %d bad", c.name, b.State(), blockID)
	}

	b.MarkBad()
}

func (c *Comp) blockMustExist(blockID int) {
	if blockID < 0 || blockID >= len(c.blocks) {
		log.Panicf("%s: block %d is out of range [0, %d)",
			c.name, blockID, len(c.blocks))
	}
}
