// Package tracing turns the hooks fired by FTL devices into log lines,
// recorded rows and event streams.
package tracing

import (
	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/flash/nand"
	"github.com/sarchlab/ftlsim/sim/hooking"
	"github.com/sarchlab/ftlsim/sim/id"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

// A WriteCounter reports the write counters of a device.
type WriteCounter interface {
	UserWrites() uint64
	NANDWrites() uint64
}

// Kinds of events.
const (
	EventGC            = "gc"
	EventGCNoVictim    = "gc_no_victim"
	EventErase         = "erase"
	EventBadBlockErase = "bad_block_erase"
	EventActiveSwitch  = "active_switch"
	EventDeviceFull    = "device_full"
)

// An Event is something that happened inside a device. Fields that do not
// apply to an event kind are -1 (block and LBA) or 0.
type Event struct {
	ID         string `json:"id" bson:"id"`
	Device     string `json:"device" bson:"device"`
	Kind       string `json:"kind" bson:"kind"`
	BlockID    int    `json:"block_id" bson:"block_id"`
	LBA        int    `json:"lba" bson:"lba"`
	Pages      int    `json:"pages" bson:"pages"`
	EraseCount int    `json:"erase_count" bson:"erase_count"`
	FreeBlocks int    `json:"free_blocks" bson:"free_blocks"`
	UserWrites uint64 `json:"user_writes" bson:"user_writes"`
	NANDWrites uint64 `json:"nand_writes" bson:"nand_writes"`
}

// eventFromHook converts a hook context into an event. It returns false for
// the positions that are not traced.
func eventFromHook(ctx hooking.HookCtx, ids id.Generator) (Event, bool) {
	e := Event{BlockID: -1, LBA: -1}

	switch ctx.Pos {
	case ftl.HookPosGCEnd:
		report := ctx.Detail.(ftl.GCReport)
		e.Kind = EventGC
		e.BlockID = report.VictimID
		e.Pages = report.MigratedPages
		e.FreeBlocks = report.FreeBlocksAfter
	case ftl.HookPosGCNoVictim:
		start := ctx.Detail.(ftl.GCStart)
		e.Kind = EventGCNoVictim
		e.FreeBlocks = start.FreeBlocks
	case ftl.HookPosBlockErased:
		erased := ctx.Detail.(ftl.BlockErased)
		e.Kind = EventErase
		e.BlockID = erased.BlockID
		e.EraseCount = erased.EraseCount
	case ftl.HookPosBadBlockErase:
		b := ctx.Item.(*nand.Block)
		e.Kind = EventBadBlockErase
		e.BlockID = b.ID()
		e.EraseCount = b.EraseCount()
	case ftl.HookPosActiveBlockSwitch:
		e.Kind = EventActiveSwitch
		e.BlockID = ctx.Detail.(ftl.ActiveBlockSwitch).To
	case ftl.HookPosDeviceFull:
		e.Kind = EventDeviceFull
		e.LBA = ctx.Detail.(int)
	default:
		return Event{}, false
	}

	e.ID = ids.Generate()

	if named, ok := ctx.Domain.(NamedHookable); ok {
		e.Device = named.Name()
	}

	if counter, ok := ctx.Domain.(WriteCounter); ok {
		e.UserWrites = counter.UserWrites()
		e.NANDWrites = counter.NANDWrites()
	}

	return e, true
}
