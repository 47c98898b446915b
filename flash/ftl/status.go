package ftl

import (
	"fmt"
	"io"

	"github.com/sarchlab/ftlsim/flash/nand"
)

// Status is a snapshot of the counters and geometry of a device.
type Status struct {
	Name             string    `json:"name"`
	SerialNumber     string    `json:"serial_number"`
	NumBlocks        int       `json:"num_blocks"`
	PagesPerBlock    int       `json:"pages_per_block"`
	NumLBAs          int       `json:"num_lbas"`
	OverProvisioning float64   `json:"over_provisioning"`
	Allocator        string    `json:"allocator"`
	VictimFinder     string    `json:"victim_finder"`
	UserWrites       uint64    `json:"user_writes"`
	NANDWrites       uint64    `json:"nand_writes"`
	WAF              float64   `json:"waf"`
	GCCount          uint64    `json:"gc_count"`
	GCNoVictimCount  uint64    `json:"gc_no_victim_count"`
	MigratedPages    uint64    `json:"migrated_pages"`
	TotalErases      int       `json:"total_erases"`
	FreeBlocks       int       `json:"free_blocks"`
	BadBlocks        int       `json:"bad_blocks"`
	ActiveBlock      int       `json:"active_block"`
	MappedLBAs       int       `json:"mapped_lbas"`
	Wear             WearStats `json:"wear"`
}

// BlockInfo is a snapshot of one physical block.
type BlockInfo struct {
	ID           int    `json:"id"`
	State        string `json:"state"`
	EraseCount   int    `json:"erase_count"`
	ValidPages   int    `json:"valid_pages"`
	InvalidPages int    `json:"invalid_pages"`
	FreePages    int    `json:"free_pages"`
	IsBad        bool   `json:"is_bad"`
	IsActive     bool   `json:"is_active"`
	PageMap      string `json:"page_map"`
}

// OverProvisioning returns the spare physical capacity relative to the
// logical capacity.
func (c *Comp) OverProvisioning() float64 {
	physical := float64(len(c.blocks) * c.pagesPerBlock)
	logical := float64(c.mapping.NumLBAs())

	return (physical - logical) / logical
}

// Stats returns a snapshot of the device.
func (c *Comp) Stats() Status {
	badBlocks := 0
	for _, b := range c.blocks {
		if b.IsBad() {
			badBlocks++
		}
	}

	return Status{
		Name:             c.name,
		SerialNumber:     c.serialNumber,
		NumBlocks:        len(c.blocks),
		PagesPerBlock:    c.pagesPerBlock,
		NumLBAs:          c.mapping.NumLBAs(),
		OverProvisioning: c.OverProvisioning(),
		Allocator:        c.allocator.Name(),
		VictimFinder:     c.victimFinder.Name(),
		UserWrites:       c.userWrites,
		NANDWrites:       c.nandWrites,
		WAF:              c.WAF(),
		GCCount:          c.gcCount,
		GCNoVictimCount:  c.gcNoVictimCount,
		MigratedPages:    c.migratedPages,
		TotalErases:      c.TotalErases(),
		FreeBlocks:       c.countFreeBlocks(),
		BadBlocks:        badBlocks,
		ActiveBlock:      c.activeBlockIdx,
		MappedLBAs:       c.mapping.NumMapped(),
		Wear:             c.WearMetrics(),
	}
}

// BlockInfos returns a snapshot of every block.
func (c *Comp) BlockInfos() []BlockInfo {
	infos := make([]BlockInfo, len(c.blocks))

	for i, b := range c.blocks {
		programmed := b.NumPages() - b.CountFreePages()

		infos[i] = BlockInfo{
			ID:           b.ID(),
			State:        b.State().String(),
			EraseCount:   b.EraseCount(),
			ValidPages:   b.CountValidPages(),
			InvalidPages: programmed - b.CountValidPages(),
			FreePages:    b.CountFreePages(),
			IsBad:        b.IsBad(),
			IsActive:     i == c.activeBlockIdx,
			PageMap:      b.PageMap(),
		}
	}

	return infos
}

// Mapping returns the mapped LBAs in ascending order.
func (c *Comp) Mapping() []MappingEntry {
	return c.mapping.Entries()
}

// DumpBlocks writes the debug view of every block.
func (c *Comp) DumpBlocks(w io.Writer) {
	for _, b := range c.blocks {
		fmt.Fprintln(w, b)
	}

	fmt.Fprintln(w, "===============================")
}

// DumpMapping writes the debug view of the mapping table.
func (c *Comp) DumpMapping(w io.Writer) {
	fmt.Fprint(w, c.mapping)
}

// Block returns the physical block with the given ID. The block must not be
// modified by the caller.
func (c *Comp) Block(blockID int) *nand.Block {
	c.blockMustExist(blockID)

	return c.blocks[blockID]
}
