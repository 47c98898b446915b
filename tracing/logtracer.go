package tracing

import (
	"io"

	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/flash/nand"
	"github.com/sarchlab/ftlsim/sim/hooking"
)

// LogTracer prints the events of a device in a human readable form.
type LogTracer struct {
	*hooking.LogHookBase
}

// NewLogTracer creates a LogTracer that writes to w. Invalidated pages are
// not logged unless verbose is set.
func NewLogTracer(w io.Writer, verbose bool) *LogTracer {
	t := &LogTracer{
		LogHookBase: hooking.NewLogHookBase(w, ""),
	}

	if !verbose {
		t.OnlyAt(
			ftl.HookPosGCNoVictim,
			ftl.HookPosGCVictim,
			ftl.HookPosGCEnd,
			ftl.HookPosBlockErased,
			ftl.HookPosBadBlockErase,
			ftl.HookPosActiveBlockSwitch,
			ftl.HookPosDeviceFull,
		)
	}

	return t
}

// Func prints one line for the hook.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	if !t.Accepts(ctx.Pos) {
		return
	}

	device := "?"
	if named, ok := ctx.Domain.(NamedHookable); ok {
		device = named.Name()
	}

	switch ctx.Pos {
	case ftl.HookPosGCStart:
		start := ctx.Detail.(ftl.GCStart)
		t.Printf("[%s] GC start: %d free blocks, active block %d",
			device, start.FreeBlocks, start.ActiveIdx)
	case ftl.HookPosGCNoVictim:
		t.Printf("[%s] GC found no victim", device)
	case ftl.HookPosGCVictim:
		v := ctx.Detail.(ftl.VictimSelected)
		t.Printf("[%s] GC victim: block %d (%d valid pages, %d erases)",
			device, v.BlockID, v.ValidPages, v.EraseCount)
	case ftl.HookPosGCEnd:
		r := ctx.Detail.(ftl.GCReport)
		t.Printf("[%s] GC #%d done: block %d reclaimed, %d pages migrated, "+
			"free blocks %d -> %d",
			device, r.Seq, r.VictimID, r.MigratedPages,
			r.FreeBlocksBefore, r.FreeBlocksAfter)
	case ftl.HookPosBlockErased:
		e := ctx.Detail.(ftl.BlockErased)
		t.Printf("[%s] block %d erased (erase count %d)",
			device, e.BlockID, e.EraseCount)
	case ftl.HookPosBadBlockErase:
		t.Printf("[%s] erase failed: %v", device, ctx.Detail)
	case ftl.HookPosActiveBlockSwitch:
		s := ctx.Detail.(ftl.ActiveBlockSwitch)
		t.Printf("[%s] active block %d -> %d (during GC: %t)",
			device, s.From, s.To, s.DuringGC)
	case ftl.HookPosPageInvalidated:
		t.Printf("[%s] page invalidated: %s",
			device, ctx.Detail.(nand.PhysicalAddress))
	case ftl.HookPosDeviceFull:
		t.Printf("[%s] device full, LBA %d not written",
			device, ctx.Detail.(int))
	}
}
