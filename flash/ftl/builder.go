package ftl

import (
	"log"

	"github.com/google/uuid"
	"github.com/sarchlab/ftlsim/flash/nand"
)

// Names of the built-in policies.
const (
	AllocatorSequential = "sequential"
	AllocatorLeastWorn  = "least-worn"

	VictimFinderGreedy    = "greedy"
	VictimFinderWearAware = "wear-aware"
)

// Builder can build FTL controllers.
type Builder struct {
	numBlocks     int
	numLBAs       int
	pagesPerBlock int
	allocator     string
	victimFinder  string
	wearThreshold int
	serialNumber  string
}

// MakeBuilder creates a builder with the baseline policies.
func MakeBuilder() Builder {
	return Builder{
		numBlocks:     8,
		numLBAs:       256,
		pagesPerBlock: nand.DefaultPagesPerBlock,
		allocator:     AllocatorSequential,
		victimFinder:  VictimFinderGreedy,
		wearThreshold: 16,
	}
}

// WithNumBlocks sets the number of physical blocks.
func (b Builder) WithNumBlocks(numBlocks int) Builder {
	b.numBlocks = numBlocks
	return b
}

// WithNumLBAs sets the number of logical addresses the host can use.
func (b Builder) WithNumLBAs(numLBAs int) Builder {
	b.numLBAs = numLBAs
	return b
}

// WithPagesPerBlock sets the page capacity of every block.
func (b Builder) WithPagesPerBlock(pagesPerBlock int) Builder {
	b.pagesPerBlock = pagesPerBlock
	return b
}

// WithAllocator selects the free-block allocation policy by name.
func (b Builder) WithAllocator(name string) Builder {
	b.allocator = name
	return b
}

// WithVictimFinder selects the garbage collection victim policy by name.
func (b Builder) WithVictimFinder(name string) Builder {
	b.victimFinder = name
	return b
}

// WithWearLeveling selects the wear-aware allocation and victim policies.
func (b Builder) WithWearLeveling() Builder {
	b.allocator = AllocatorLeastWorn
	b.victimFinder = VictimFinderWearAware

	return b
}

// WithWearThreshold sets the erase-count gap above which the wear-aware victim
// finder reclaims cold blocks.
func (b Builder) WithWearThreshold(threshold int) Builder {
	b.wearThreshold = threshold
	return b
}

// WithSerialNumber sets the serial number of the device. A random one is
// generated if it is not set.
func (b Builder) WithSerialNumber(serialNumber string) Builder {
	b.serialNumber = serialNumber
	return b
}

// Build builds a controller with all blocks Free and an empty mapping table.
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	c := &Comp{
		name:          name,
		serialNumber:  b.serialNumber,
		pagesPerBlock: b.pagesPerBlock,
		mapping:       NewMappingTable(b.numLBAs),
		allocator:     b.createAllocator(),
		victimFinder:  b.createVictimFinder(),
	}

	if c.serialNumber == "" {
		c.serialNumber = uuid.New().String()
	}

	c.blocks = make([]*nand.Block, b.numBlocks)
	for i := range c.blocks {
		c.blocks[i] = nand.NewBlock(i, b.pagesPerBlock)
	}

	return c
}

func (b Builder) parametersMustBeValid() {
	if b.numBlocks <= 0 {
		log.Panicf("number of blocks must be positive, got %d", b.numBlocks)
	}

	if b.numLBAs <= 0 {
		log.Panicf("number of LBAs must be positive, got %d", b.numLBAs)
	}

	if b.pagesPerBlock <= 0 {
		log.Panicf("pages per block must be positive, got %d", b.pagesPerBlock)
	}

	if b.wearThreshold < 0 {
		log.Panicf("wear threshold must not be negative, got %d",
			b.wearThreshold)
	}
}

func (b Builder) createAllocator() Allocator {
	switch b.allocator {
	case AllocatorSequential:
		return NewSequentialAllocator()
	case AllocatorLeastWorn:
		return NewLeastWornAllocator()
	default:
		panic("unknown allocator: " + b.allocator)
	}
}

func (b Builder) createVictimFinder() VictimFinder {
	switch b.victimFinder {
	case VictimFinderGreedy:
		return NewGreedyVictimFinder()
	case VictimFinderWearAware:
		return NewWearAwareVictimFinder(b.wearThreshold)
	default:
		panic("unknown victim finder: " + b.victimFinder)
	}
}

// New creates a baseline device with numBlocks blocks of the default size and
// numLBAs logical addresses.
func New(numBlocks, numLBAs int) *Comp {
	return MakeBuilder().
		WithNumBlocks(numBlocks).
		WithNumLBAs(numLBAs).
		Build("SSD")
}

// NewWearLeveling creates a device that uses the wear-aware policies.
func NewWearLeveling(numBlocks, numLBAs int) *Comp {
	return MakeBuilder().
		WithNumBlocks(numBlocks).
		WithNumLBAs(numLBAs).
		WithWearLeveling().
		Build("WearLevelingSSD")
}

// KnownAllocators lists the allocator names Build accepts.
func KnownAllocators() []string {
	return []string{AllocatorSequential, AllocatorLeastWorn}
}

// KnownVictimFinders lists the victim finder names Build accepts.
func KnownVictimFinders() []string {
	return []string{VictimFinderGreedy, VictimFinderWearAware}
}
