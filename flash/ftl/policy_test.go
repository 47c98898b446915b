package ftl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ftlsim/flash/nand"
)

// makeTestBlock creates a 4-page block that has been erased erases times,
// then has programmed pages written and the first invalidated of them
// invalidated.
func makeTestBlock(id, erases, programmed, invalidated int) *nand.Block {
	b := nand.NewBlock(id, 4)

	for i := 0; i < erases; i++ {
		b.Program(0, 0)
		Expect(b.Erase()).To(Succeed())
	}

	for i := 0; i < programmed; i++ {
		b.Program(i, uint32(i))
	}

	for i := 0; i < invalidated; i++ {
		b.Invalidate(i)
	}

	return b
}

var _ = Describe("Allocators", func() {
	Context("sequential", func() {
		var a *SequentialAllocator

		BeforeEach(func() {
			a = NewSequentialAllocator()
		})

		It("should have a name", func() {
			Expect(a.Name()).To(Equal(AllocatorSequential))
		})

		It("should pick the lowest-indexed free block", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 4, 0),
				makeTestBlock(1, 5, 0, 0),
				makeTestBlock(2, 0, 0, 0),
			}

			idx, ok := a.NextFreeBlock(blocks, 0)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(1))
		})

		It("should skip the active and bad blocks", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 0, 0),
				makeTestBlock(1, 0, 0, 0),
				makeTestBlock(2, 0, 0, 0),
			}
			blocks[1].MarkBad()

			idx, ok := a.NextFreeBlock(blocks, 0)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should report when there is no free block", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 1, 0),
				makeTestBlock(1, 0, 4, 0),
			}

			_, ok := a.NextFreeBlock(blocks, 0)

			Expect(ok).To(BeFalse())
		})
	})

	Context("least worn", func() {
		var a *LeastWornAllocator

		BeforeEach(func() {
			a = NewLeastWornAllocator()
		})

		It("should have a name", func() {
			Expect(a.Name()).To(Equal(AllocatorLeastWorn))
		})

		It("should pick the free block with the fewest erases", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 2, 0),
				makeTestBlock(1, 3, 0, 0),
				makeTestBlock(2, 1, 0, 0),
				makeTestBlock(3, 1, 0, 0),
				makeTestBlock(4, 0, 4, 0),
			}

			idx, ok := a.NextFreeBlock(blocks, 0)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should never pick a bad block", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 4, 0, 0),
				makeTestBlock(1, 0, 0, 0),
				makeTestBlock(2, 0, 1, 0),
			}
			blocks[1].MarkBad()

			idx, ok := a.NextFreeBlock(blocks, 2)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(0))
		})
	})
})

var _ = Describe("Victim finders", func() {
	Context("greedy", func() {
		var f *GreedyVictimFinder

		BeforeEach(func() {
			f = NewGreedyVictimFinder()
		})

		It("should have a name", func() {
			Expect(f.Name()).To(Equal(VictimFinderGreedy))
		})

		It("should pick the block with the fewest valid pages", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 2, 0),
				makeTestBlock(1, 0, 4, 1),
				makeTestBlock(2, 0, 4, 3),
				makeTestBlock(3, 0, 4, 3),
			}

			idx, ok := f.FindVictim(blocks, 0, 4)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should ignore the free and active blocks", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 4, 4),
				makeTestBlock(1, 0, 0, 0),
				makeTestBlock(2, 0, 4, 2),
			}

			idx, ok := f.FindVictim(blocks, 0, 4)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should only pick victims that fit the free page budget", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 1, 0),
				makeTestBlock(1, 0, 4, 1),
			}

			_, ok := f.FindVictim(blocks, 0, 2)
			Expect(ok).To(BeFalse())

			idx, ok := f.FindVictim(blocks, 0, 3)
			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(1))
		})

		It("should report when nothing can be reclaimed", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 1, 0),
				makeTestBlock(1, 0, 0, 0),
			}

			_, ok := f.FindVictim(blocks, 0, 64)

			Expect(ok).To(BeFalse())
		})
	})

	Context("wear aware", func() {
		var f *WearAwareVictimFinder

		BeforeEach(func() {
			f = NewWearAwareVictimFinder(2)
		})

		It("should have a name", func() {
			Expect(f.Name()).To(Equal(VictimFinderWearAware))
		})

		It("should behave greedily while wear is even", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 1, 0),
				makeTestBlock(1, 1, 4, 0),
				makeTestBlock(2, 2, 4, 3),
			}

			idx, ok := f.FindVictim(blocks, 0, 4)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should break ties in favor of the less worn block", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 1, 0),
				makeTestBlock(1, 2, 4, 2),
				makeTestBlock(2, 1, 4, 2),
			}

			idx, ok := f.FindVictim(blocks, 0, 4)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should reclaim a cold block when the gap is too large", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 9, 1, 0),
				makeTestBlock(1, 0, 4, 0),
				makeTestBlock(2, 5, 4, 4),
			}

			idx, ok := f.FindVictim(blocks, 0, 4)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(1))
		})

		It("should not pick a cold block that does not fit the budget", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 9, 1, 0),
				makeTestBlock(1, 0, 4, 0),
				makeTestBlock(2, 5, 4, 4),
			}

			idx, ok := f.FindVictim(blocks, 0, 3)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
		})

		It("should ignore bad blocks when measuring wear", func() {
			blocks := []*nand.Block{
				makeTestBlock(0, 0, 1, 0),
				makeTestBlock(1, 9, 0, 0),
				makeTestBlock(2, 0, 4, 0),
				makeTestBlock(3, 1, 4, 3),
			}
			blocks[1].MarkBad()

			idx, ok := f.FindVictim(blocks, 0, 4)

			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(3))
		})
	})
})
