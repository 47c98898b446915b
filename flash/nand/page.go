// Package nand models the physical side of a NAND flash device: pages that
// can only be programmed once per erase, and blocks that group pages into the
// unit of erasure.
package nand

import "fmt"

// PageState is the lifecycle state of a physical page.
type PageState int

// The states a page can be in.
const (
	PageFree PageState = iota
	PageValid
	PageInvalid
)

func (s PageState) String() string {
	switch s {
	case PageFree:
		return "Free"
	case PageValid:
		return "Valid"
	case PageInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// Symbol returns the one-character symbol used in block page maps.
func (s PageState) Symbol() byte {
	switch s {
	case PageValid:
		return 'V'
	case PageInvalid:
		return 'I'
	default:
		return '.'
	}
}

// A Page is the smallest programmable unit of a flash device. Content is only
// meaningful while the page is Valid.
type Page struct {
	Content uint32
	State   PageState
}

func (p Page) String() string {
	switch p.State {
	case PageValid:
		return fmt.Sprintf("[  VALID  ] Data: 0x%08X", p.Content)
	case PageInvalid:
		return fmt.Sprintf("[ INVALID ] (trash: 0x%08X)", p.Content)
	default:
		return "[  FREE   ]"
	}
}

// PhysicalAddress identifies one physical page.
type PhysicalAddress struct {
	BlockID    int
	PageOffset int
}

func (a PhysicalAddress) String() string {
	return fmt.Sprintf("Block %d | Page %d", a.BlockID, a.PageOffset)
}
