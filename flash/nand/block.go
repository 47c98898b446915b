package nand

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// DefaultPagesPerBlock is the number of pages in a block unless a device is
// configured otherwise.
const DefaultPagesPerBlock = 64

// ErrBadBlock is returned when an erase is requested on a block that has been
// marked bad. The block is left untouched.
var ErrBadBlock = errors.New("block is marked bad")

// BlockState is the aggregate programming state of a block.
type BlockState int

// The aggregate states of a block. A Full block may hold Invalid pages.
const (
	BlockFree BlockState = iota
	BlockActive
	BlockFull
)

func (s BlockState) String() string {
	switch s {
	case BlockFree:
		return "Free"
	case BlockActive:
		return "Active"
	case BlockFull:
		return "Full"
	default:
		return fmt.Sprintf("BlockState(%d)", int(s))
	}
}

// A Block is the unit of erasure. Pages inside a block can be programmed
// individually, but they only return to Free when the whole block is erased.
type Block struct {
	id         int
	pages      []Page
	eraseCount int
	isBad      bool
	state      BlockState

	numProgrammed int
	numValid      int

	// Every offset below freeHint has been programmed since the last erase.
	freeHint int
}

// NewBlock creates a Free block with the given number of pages.
func NewBlock(id, numPages int) *Block {
	if numPages <= 0 {
		log.Panicf("block %d: number of pages must be positive, got %d",
			id, numPages)
	}

	return &Block{
		id:    id,
		pages: make([]Page, numPages),
		state: BlockFree,
	}
}

// ID returns the identifier of the block.
func (b *Block) ID() int {
	return b.id
}

// NumPages returns the page capacity of the block.
func (b *Block) NumPages() int {
	return len(b.pages)
}

// State returns the aggregate state of the block.
func (b *Block) State() BlockState {
	return b.state
}

// EraseCount returns how many times the block has been erased.
func (b *Block) EraseCount() int {
	return b.eraseCount
}

// IsBad tells if the block has been marked bad.
func (b *Block) IsBad() bool {
	return b.isBad
}

// MarkBad marks the block as bad. A bad block can no longer be programmed or
// erased.
func (b *Block) MarkBad() {
	b.isBad = true
}

// Read returns the page at the given offset.
func (b *Block) Read(offset int) Page {
	b.offsetMustBeInRange(offset)

	return b.pages[offset]
}

// Program writes data into a Free page and marks it Valid.
func (b *Block) Program(offset int, data uint32) {
	if b.isBad {
		log.Panicf("block %d: cannot program a bad block", b.id)
	}

	b.offsetMustBeInRange(offset)

	page := &b.pages[offset]
	if page.State != PageFree {
		log.Panicf("block %d page %d: cannot overwrite a %s page, "+
			"the block must be erased first", b.id, offset, page.State)
	}

	page.Content = data
	page.State = PageValid

	b.numProgrammed++
	b.numValid++

	if b.state == BlockFree {
		b.state = BlockActive
	}

	if b.numProgrammed == len(b.pages) {
		b.state = BlockFull
	}
}

// Invalidate marks a Valid page as Invalid. The content is kept as trash
// until the block is erased.
func (b *Block) Invalidate(offset int) {
	b.offsetMustBeInRange(offset)

	page := &b.pages[offset]
	if page.State != PageValid {
		log.Panicf("block %d page %d: cannot invalidate a %s page",
			b.id, offset, page.State)
	}

	page.State = PageInvalid
	b.numValid--
}

// Erase resets every page to Free and increments the erase count. Erasing a
// block that has not been programmed since the last erase changes nothing.
func (b *Block) Erase() error {
	if b.isBad {
		return fmt.Errorf("block %d: %w", b.id, ErrBadBlock)
	}

	if b.state == BlockFree {
		return nil
	}

	for i := range b.pages {
		b.pages[i] = Page{}
	}

	b.eraseCount++
	b.state = BlockFree
	b.numProgrammed = 0
	b.numValid = 0
	b.freeHint = 0

	return nil
}

// CountValidPages returns the number of Valid pages in the block.
func (b *Block) CountValidPages() int {
	return b.numValid
}

// CountFreePages returns the number of pages that can still be programmed.
func (b *Block) CountFreePages() int {
	return len(b.pages) - b.numProgrammed
}

// FirstFreeOffset returns the lowest offset whose page is Free.
func (b *Block) FirstFreeOffset() (int, bool) {
	for i := b.freeHint; i < len(b.pages); i++ {
		if b.pages[i].State == PageFree {
			b.freeHint = i
			return i, true
		}
	}

	b.freeHint = len(b.pages)

	return 0, false
}

func (b *Block) offsetMustBeInRange(offset int) {
	if offset < 0 || offset >= len(b.pages) {
		log.Panicf("block %d: page offset %d is out of range [0, %d)",
			b.id, offset, len(b.pages))
	}
}

// PageMap renders the state of every page as a V/I/. symbol string.
func (b *Block) PageMap() string {
	symbols := make([]byte, len(b.pages))
	for i, p := range b.pages {
		symbols[i] = p.State.Symbol()
	}

	return string(symbols)
}

func (b *Block) String() string {
	sb := new(strings.Builder)

	fmt.Fprintf(sb, "=== Physical Block #%d ===\n", b.id)
	fmt.Fprintf(sb, "  State:      %s\n", b.state)
	fmt.Fprintf(sb, "  Erase Cnt:  %d\n", b.eraseCount)
	fmt.Fprintf(sb, "  Valid Pgs:  %d/%d\n", b.numValid, len(b.pages))
	fmt.Fprintf(sb, "  Is Bad:     %t\n", b.isBad)
	sb.WriteString("  Map: [")

	pageMap := b.PageMap()
	for i := 0; i < len(pageMap); i += 16 {
		if i > 0 {
			sb.WriteString("\n        ")
		}

		end := min(i+16, len(pageMap))
		sb.WriteString(pageMap[i:end])
	}

	sb.WriteString("]")

	return sb.String()
}
