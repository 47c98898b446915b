package tracing

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ftlsim/flash/ftl"
)

var _ = Describe("LogTracer", func() {
	var (
		buf    *bytes.Buffer
		device *ftl.Comp
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		device = ftl.New(3, 100)
	})

	It("should log garbage collection", func() {
		device.AcceptHook(NewLogTracer(buf, false))

		writeSameLBA(device, 100)

		Expect(buf.String()).To(ContainSubstring(
			"[SSD] active block 0 -> 1 (during GC: false)\n"))
		Expect(buf.String()).To(ContainSubstring(
			"[SSD] GC victim: block 0 (0 valid pages, 0 erases)\n"))
		Expect(buf.String()).To(ContainSubstring(
			"[SSD] block 0 erased (erase count 1)\n"))
		Expect(buf.String()).To(ContainSubstring(
			"[SSD] GC #1 done: block 0 reclaimed, 0 pages migrated, " +
				"free blocks 1 -> 2\n"))
		Expect(buf.String()).NotTo(ContainSubstring("page invalidated"))
		Expect(buf.String()).NotTo(ContainSubstring("GC start"))
	})

	It("should log every position when verbose", func() {
		device.AcceptHook(NewLogTracer(buf, true))

		writeSameLBA(device, 2)

		Expect(buf.String()).To(Equal(
			"[SSD] page invalidated: Block 0 | Page 0\n"))
	})

	It("should log a full device", func() {
		tiny := ftl.MakeBuilder().
			WithNumBlocks(1).
			WithNumLBAs(1).
			WithPagesPerBlock(1).
			Build("Tiny")
		tiny.AcceptHook(NewLogTracer(buf, false))

		Expect(tiny.Write(0, 1)).To(Succeed())
		Expect(tiny.Write(0, 2)).NotTo(Succeed())

		Expect(buf.String()).To(ContainSubstring("[Tiny] GC found no victim\n"))
		Expect(buf.String()).To(ContainSubstring(
			"[Tiny] device full, LBA 0 not written\n"))
	})
})
