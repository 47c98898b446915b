package ftl

import (
	"fmt"
	"log"
	"strings"

	"github.com/sarchlab/ftlsim/flash/nand"
)

// A MappingTable translates logical block addresses into physical page
// addresses. It is a pure lookup structure: whoever replaces or removes an
// entry is responsible for invalidating the page that the old entry pointed
// to.
type MappingTable struct {
	entries   []nand.PhysicalAddress
	mapped    []bool
	numMapped int
}

// MappingEntry is one mapped LBA in a sparse listing of the table.
type MappingEntry struct {
	LBA        int `json:"lba"`
	BlockID    int `json:"block_id"`
	PageOffset int `json:"page_offset"`
}

// NewMappingTable creates an empty table that can hold numLBAs addresses.
func NewMappingTable(numLBAs int) *MappingTable {
	if numLBAs <= 0 {
		log.Panicf("mapping table size must be positive, got %d", numLBAs)
	}

	return &MappingTable{
		entries: make([]nand.PhysicalAddress, numLBAs),
		mapped:  make([]bool, numLBAs),
	}
}

// NumLBAs returns the number of logical addresses the table covers.
func (t *MappingTable) NumLBAs() int {
	return len(t.entries)
}

// NumMapped returns the number of LBAs that currently have a physical page.
func (t *MappingTable) NumMapped() int {
	return t.numMapped
}

// Get returns the physical address of an LBA, if it is mapped.
func (t *MappingTable) Get(lba int) (nand.PhysicalAddress, bool) {
	t.lbaMustBeInRange(lba)

	return t.entries[lba], t.mapped[lba]
}

// Update points an LBA at a new physical address and returns the address it
// used to point at.
func (t *MappingTable) Update(
	lba int,
	pba nand.PhysicalAddress,
) (old nand.PhysicalAddress, hadOld bool) {
	t.lbaMustBeInRange(lba)

	old, hadOld = t.entries[lba], t.mapped[lba]

	t.entries[lba] = pba
	t.mapped[lba] = true

	if !hadOld {
		t.numMapped++
	}

	return old, hadOld
}

// Unmap clears an LBA and returns the address it used to point at.
func (t *MappingTable) Unmap(lba int) (old nand.PhysicalAddress, hadOld bool) {
	t.lbaMustBeInRange(lba)

	old, hadOld = t.entries[lba], t.mapped[lba]

	t.entries[lba] = nand.PhysicalAddress{}
	t.mapped[lba] = false

	if hadOld {
		t.numMapped--
	}

	return old, hadOld
}

// FindLBA returns the LBA that is mapped to the given physical address. The
// table is scanned linearly.
func (t *MappingTable) FindLBA(pba nand.PhysicalAddress) (int, bool) {
	for lba, entry := range t.entries {
		if t.mapped[lba] && entry == pba {
			return lba, true
		}
	}

	return 0, false
}

// Entries returns all the mapped LBAs in ascending order.
func (t *MappingTable) Entries() []MappingEntry {
	entries := make([]MappingEntry, 0, t.numMapped)

	for lba, entry := range t.entries {
		if !t.mapped[lba] {
			continue
		}

		entries = append(entries, MappingEntry{
			LBA:        lba,
			BlockID:    entry.BlockID,
			PageOffset: entry.PageOffset,
		})
	}

	return entries
}

func (t *MappingTable) lbaMustBeInRange(lba int) {
	if lba < 0 || lba >= len(t.entries) {
		log.Panicf("LBA %d is out of range [0, %d)", lba, len(t.entries))
	}
}

func (t *MappingTable) String() string {
	sb := new(strings.Builder)

	sb.WriteString("=== Mapping Table Summary ===\n")
	fmt.Fprintf(sb, "  Usage: %d / %d LBAs mapped\n",
		t.numMapped, len(t.entries))
	sb.WriteString("  ---------------------------\n")

	for _, e := range t.Entries() {
		fmt.Fprintf(sb, "  LBA [%-5d] -> Block %-4d | Page %-3d\n",
			e.LBA, e.BlockID, e.PageOffset)
	}

	if t.numMapped == 0 {
		sb.WriteString("  (Table is Empty)\n")
	}

	sb.WriteString("=============================\n")

	return sb.String()
}
