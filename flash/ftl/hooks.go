package ftl

import (
	"github.com/sarchlab/ftlsim/sim/hooking"
)

// Hook positions that a Comp triggers. The Detail field of the HookCtx holds
// the value named in each comment.
var (
	// GCStart
	HookPosGCStart = &hooking.HookPos{Name: "FTL.GCStart"}
	// GCStart, when no block could be reclaimed
	HookPosGCNoVictim = &hooking.HookPos{Name: "FTL.GCNoVictim"}
	// VictimSelected
	HookPosGCVictim = &hooking.HookPos{Name: "FTL.GCVictim"}
	// GCReport
	HookPosGCEnd = &hooking.HookPos{Name: "FTL.GCEnd"}
	// BlockErased
	HookPosBlockErased = &hooking.HookPos{Name: "FTL.BlockErased"}
	// error wrapping nand.ErrBadBlock
	HookPosBadBlockErase = &hooking.HookPos{Name: "FTL.BadBlockErase"}
	// ActiveBlockSwitch
	HookPosActiveBlockSwitch = &hooking.HookPos{Name: "FTL.ActiveBlockSwitch"}
	// nand.PhysicalAddress of the invalidated page
	HookPosPageInvalidated = &hooking.HookPos{Name: "FTL.PageInvalidated"}
	// int, the LBA that could not be written
	HookPosDeviceFull = &hooking.HookPos{Name: "FTL.DeviceFull"}
)

// GCStart describes the device when a garbage collection pass begins.
type GCStart struct {
	FreeBlocks int
	ActiveIdx  int
}

// VictimSelected describes the block that a garbage collection pass reclaims.
type VictimSelected struct {
	BlockID    int
	ValidPages int
	EraseCount int
}

// GCReport summarizes a finished garbage collection pass.
type GCReport struct {
	Seq              uint64
	VictimID         int
	MigratedPages    int
	FreeBlocksBefore int
	FreeBlocksAfter  int
	UserWrites       uint64
	NANDWrites       uint64
}

// BlockErased describes an erase performed by garbage collection.
type BlockErased struct {
	BlockID    int
	EraseCount int
}

// ActiveBlockSwitch describes a change of the active block.
type ActiveBlockSwitch struct {
	From     int
	To       int
	DuringGC bool
}
