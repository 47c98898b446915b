package ftl

import (
	"bytes"
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ftlsim/flash/nand"
	"github.com/sarchlab/ftlsim/sim/hooking"
)

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report zero WAF before any write", func() {
		c := New(3, 100)

		Expect(c.WAF()).To(Equal(0.0))
		Expect(c.UserWrites()).To(BeZero())
		Expect(c.NANDWrites()).To(BeZero())
	})

	It("should invalidate the old page when an LBA is rewritten", func() {
		c := New(3, 100)

		Expect(c.Write(5, 0xAAAA)).To(Succeed())

		first, ok := c.Lookup(5)
		Expect(ok).To(BeTrue())
		page := c.ReadPhysical(first)
		Expect(page.Content).To(Equal(uint32(0xAAAA)))
		Expect(page.State).To(Equal(nand.PageValid))

		Expect(c.Write(5, 0xBBBB)).To(Succeed())

		second, ok := c.Lookup(5)
		Expect(ok).To(BeTrue())
		Expect(second).NotTo(Equal(first))
		Expect(c.ReadPhysical(first).State).To(Equal(nand.PageInvalid))
		Expect(c.ReadPhysical(second)).To(Equal(nand.Page{
			Content: 0xBBBB,
			State:   nand.PageValid,
		}))

		data, ok := c.Read(5)
		Expect(ok).To(BeTrue())
		Expect(data).To(Equal(uint32(0xBBBB)))
	})

	It("should panic on out of range LBAs", func() {
		c := New(3, 100)

		Expect(func() { c.Write(100, 1) }).To(Panic())
		Expect(func() { c.Write(-1, 1) }).To(Panic())
		Expect(c.UserWrites()).To(BeZero())
	})

	It("should survive 100 writes to the same LBA on 3 blocks", func() {
		c := New(3, 100)

		for i := 0; i < 100; i++ {
			Expect(c.Write(0, uint32(i))).To(Succeed())
		}

		Expect(c.GCCount()).To(BeNumerically(">=", 1))
		Expect(c.UserWrites()).To(Equal(uint64(100)))
		Expect(c.NANDWrites()).To(Equal(uint64(100)))
		Expect(c.WAF()).To(Equal(1.0))
		Expect(c.Validate()).To(Succeed())

		data, ok := c.Read(0)
		Expect(ok).To(BeTrue())
		Expect(data).To(Equal(uint32(99)))
	})

	It("should survive 1000 cyclic writes on 5 blocks", func() {
		c := New(5, 100)

		for i := 0; i < 1000; i++ {
			Expect(c.Write(i%100, uint32(i))).To(Succeed())
		}

		Expect(c.WAF()).To(BeNumerically(">=", 1.0))
		Expect(c.Validate()).To(Succeed())

		for lba := 0; lba < 100; lba++ {
			data, ok := c.Read(lba)
			Expect(ok).To(BeTrue())
			Expect(data).To(Equal(uint32(900 + lba)))
		}
	})

	It("should report a full device instead of panicking", func() {
		c := MakeBuilder().
			WithNumBlocks(1).
			WithNumLBAs(1).
			Build("Tiny")

		for i := 0; i < nand.DefaultPagesPerBlock; i++ {
			Expect(c.Write(0, uint32(i))).To(Succeed())
		}

		err := c.Write(0, 0xFFFF)

		Expect(errors.Is(err, ErrDeviceFull)).To(BeTrue())
		Expect(c.UserWrites()).To(Equal(uint64(64)))
		Expect(c.NANDWrites()).To(Equal(uint64(64)))
		Expect(c.Validate()).To(Succeed())

		data, _ := c.Read(0)
		Expect(data).To(Equal(uint32(63)))
	})

	It("should be full after a single-page block is consumed", func() {
		c := MakeBuilder().
			WithNumBlocks(1).
			WithNumLBAs(1).
			WithPagesPerBlock(1).
			Build("SinglePage")

		Expect(c.Write(0, 1)).To(Succeed())
		Expect(errors.Is(c.Write(0, 2), ErrDeviceFull)).To(BeTrue())
	})

	It("should keep the invariants under random writes", func() {
		c := MakeBuilder().
			WithNumBlocks(8).
			WithNumLBAs(300).
			Build("Random")
		rng := rand.New(rand.NewSource(7))

		for i := 0; i < 5000; i++ {
			Expect(c.Write(rng.Intn(300), uint32(i))).To(Succeed())
			Expect(c.NANDWrites()).To(BeNumerically(">=", c.UserWrites()))

			if i%50 == 0 {
				Expect(c.Validate()).To(Succeed())
			}
		}

		Expect(c.Validate()).To(Succeed())
		Expect(c.GCCount()).To(BeNumerically(">", 0))
		Expect(c.WAF()).To(BeNumerically(">", 1.0))
	})

	It("should never count garbage collection as user writes", func() {
		c := MakeBuilder().
			WithNumBlocks(6).
			WithNumLBAs(200).
			WithWearLeveling().
			Build("NonRecursive")
		rng := rand.New(rand.NewSource(11))

		var userWritesAtStart uint64
		passes := 0

		c.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			switch ctx.Pos {
			case HookPosGCStart:
				userWritesAtStart = c.UserWrites()
			case HookPosGCEnd:
				passes++
				report := ctx.Detail.(GCReport)
				Expect(report.UserWrites).To(Equal(userWritesAtStart))
				Expect(c.UserWrites()).To(Equal(userWritesAtStart))
			}
		}))

		for i := 0; i < 3000; i++ {
			Expect(c.Write(rng.Intn(200), uint32(i))).To(Succeed())
		}

		Expect(passes).To(BeNumerically(">", 0))
		Expect(c.Validate()).To(Succeed())
	})

	It("should trim", func() {
		c := New(3, 10)
		Expect(c.Write(3, 0xCAFE)).To(Succeed())
		pba, _ := c.Lookup(3)

		c.Trim(3)

		_, ok := c.Read(3)
		Expect(ok).To(BeFalse())
		Expect(c.ReadPhysical(pba).State).To(Equal(nand.PageInvalid))
		Expect(c.Stats().MappedLBAs).To(Equal(0))

		c.Trim(3)
		Expect(c.Validate()).To(Succeed())
	})

	It("should skip bad blocks when switching the active block", func() {
		c := New(3, 10)
		c.MarkBad(1)

		for i := 0; i < 65; i++ {
			Expect(c.Write(i%10, uint32(i))).To(Succeed())
		}

		Expect(c.ActiveBlock()).To(Equal(2))
		Expect(c.Stats().BadBlocks).To(Equal(1))
		Expect(c.Block(1).State()).To(Equal(nand.BlockFree))
	})

	It("should only mark free, inactive blocks bad", func() {
		c := New(3, 10)
		Expect(c.Write(0, 1)).To(Succeed())

		Expect(func() { c.MarkBad(0) }).To(Panic())
		Expect(func() { c.MarkBad(3) }).To(Panic())
	})

	It("should trigger hooks", func() {
		c := New(3, 100)
		hook := NewMockHook(mockCtrl)
		c.AcceptHook(hook)

		var positions []*hooking.HookPos
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Domain).To(BeIdenticalTo(c))
				positions = append(positions, ctx.Pos)
			}).
			AnyTimes()

		for i := 0; i < 100; i++ {
			Expect(c.Write(0, uint32(i))).To(Succeed())
		}

		Expect(positions).To(ContainElements(
			HookPosPageInvalidated,
			HookPosActiveBlockSwitch,
			HookPosGCStart,
			HookPosGCVictim,
			HookPosBlockErased,
			HookPosGCEnd,
		))
		Expect(positions).NotTo(ContainElement(HookPosDeviceFull))
	})

	It("should report when there is no victim", func() {
		c := New(1, 1)

		var noVictim int
		c.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosGCNoVictim {
				noVictim++
			}
		}))

		Expect(c.Write(0, 1)).To(Succeed())
		Expect(c.GC()).To(BeFalse())

		Expect(noVictim).To(Equal(2))
		Expect(c.Stats().GCNoVictimCount).To(Equal(uint64(2)))
	})

	It("should print debug views", func() {
		c := New(2, 100)
		Expect(c.Write(1, 0xAB)).To(Succeed())

		buf := new(bytes.Buffer)
		c.DumpBlocks(buf)
		c.DumpMapping(buf)

		Expect(buf.String()).To(ContainSubstring("=== Physical Block #0 ==="))
		Expect(buf.String()).To(ContainSubstring("=== Physical Block #1 ==="))
		Expect(buf.String()).To(ContainSubstring("Usage: 1 / 100 LBAs mapped"))
		Expect(buf.String()).To(ContainSubstring("LBA [1    ] -> Block 0"))
	})

	It("should report stats and block snapshots", func() {
		c := New(5, 100)
		for i := 0; i < 1000; i++ {
			Expect(c.Write(i%100, uint32(i))).To(Succeed())
		}

		s := c.Stats()
		Expect(s.Name).To(Equal("SSD"))
		Expect(s.SerialNumber).NotTo(BeEmpty())
		Expect(s.NumBlocks).To(Equal(5))
		Expect(s.PagesPerBlock).To(Equal(64))
		Expect(s.OverProvisioning).To(BeNumerically("~", 2.2, 1e-9))
		Expect(s.Allocator).To(Equal(AllocatorSequential))
		Expect(s.VictimFinder).To(Equal(VictimFinderGreedy))
		Expect(s.UserWrites).To(Equal(uint64(1000)))
		Expect(s.NANDWrites).To(Equal(c.NANDWrites()))
		Expect(s.MappedLBAs).To(Equal(100))
		Expect(s.TotalErases).To(Equal(c.TotalErases()))
		Expect(s.Wear).To(Equal(c.WearMetrics()))

		infos := c.BlockInfos()
		Expect(infos).To(HaveLen(5))

		valid, active := 0, 0
		for _, info := range infos {
			valid += info.ValidPages
			Expect(info.ValidPages + info.InvalidPages + info.FreePages).
				To(Equal(64))
			Expect(info.PageMap).To(HaveLen(64))

			if info.IsActive {
				active++
			}
		}

		Expect(valid).To(Equal(100))
		Expect(active).To(Equal(1))
		Expect(c.Mapping()).To(HaveLen(100))
	})
})

var _ = Describe("Comp garbage collection", func() {
	var (
		mockCtrl     *gomock.Controller
		c            *Comp
		victimFinder *MockVictimFinder
		allocator    *MockAllocator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		victimFinder = NewMockVictimFinder(mockCtrl)
		victimFinder.EXPECT().Name().Return("mock").AnyTimes()
		allocator = NewMockAllocator(mockCtrl)
		allocator.EXPECT().Name().Return("mock").AnyTimes()

		c = New(4, 100)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should migrate valid pages and erase the victim", func() {
		for i := 0; i < 65; i++ {
			Expect(c.Write(i, uint32(0x1000+i))).To(Succeed())
		}
		Expect(c.ActiveBlock()).To(Equal(1))

		c.victimFinder = victimFinder
		victimFinder.EXPECT().
			FindVictim(gomock.Any(), 1, 63+64+64).
			Return(0, true)

		Expect(c.GC()).To(BeTrue())

		Expect(c.Block(0).State()).To(Equal(nand.BlockFree))
		Expect(c.Block(0).EraseCount()).To(Equal(1))
		Expect(c.ActiveBlock()).To(Equal(2))
		Expect(c.UserWrites()).To(Equal(uint64(65)))
		Expect(c.NANDWrites()).To(Equal(uint64(65 + 64)))
		Expect(c.Stats().MigratedPages).To(Equal(uint64(64)))
		Expect(c.Validate()).To(Succeed())

		for i := 0; i < 65; i++ {
			data, ok := c.Read(i)
			Expect(ok).To(BeTrue())
			Expect(data).To(Equal(uint32(0x1000 + i)))
		}
	})

	It("should do nothing when no victim is found", func() {
		Expect(c.Write(0, 1)).To(Succeed())

		c.victimFinder = victimFinder
		victimFinder.EXPECT().
			FindVictim(gomock.Any(), 0, gomock.Any()).
			Return(0, false)

		Expect(c.GC()).To(BeFalse())
		Expect(c.GCCount()).To(BeZero())
		Expect(c.NANDWrites()).To(Equal(uint64(1)))
	})

	It("should panic if the victim finder picks the active block", func() {
		Expect(c.Write(0, 1)).To(Succeed())

		c.victimFinder = victimFinder
		victimFinder.EXPECT().
			FindVictim(gomock.Any(), 0, gomock.Any()).
			Return(0, true)

		Expect(func() { c.GC() }).To(Panic())
	})

	It("should return device full when the allocator finds no block", func() {
		for i := 0; i < 64; i++ {
			Expect(c.Write(i, uint32(i))).To(Succeed())
		}

		c.allocator = allocator
		allocator.EXPECT().NextFreeBlock(gomock.Any(), 0).Return(0, false)

		err := c.Write(64, 1)

		Expect(errors.Is(err, ErrDeviceFull)).To(BeTrue())
		Expect(c.UserWrites()).To(Equal(uint64(64)))
	})

	It("should rotate to the block the allocator picks", func() {
		for i := 0; i < 64; i++ {
			Expect(c.Write(i, uint32(i))).To(Succeed())
		}

		c.allocator = allocator
		allocator.EXPECT().NextFreeBlock(gomock.Any(), 0).Return(3, true)

		Expect(c.Write(64, 1)).To(Succeed())

		Expect(c.ActiveBlock()).To(Equal(3))
		pba, _ := c.Lookup(64)
		Expect(pba).To(Equal(nand.PhysicalAddress{BlockID: 3, PageOffset: 0}))
	})
})
