package tracing

import (
	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/sim/hooking"
	"github.com/sarchlab/ftlsim/sim/id"
)

// GCTable is the name of the table that GCRecorder writes.
const GCTable = "ftl_gc"

// GCRow is one garbage collection pass.
type GCRow struct {
	ID               string
	Device           string
	Seq              uint64
	VictimID         int
	MigratedPages    int
	FreeBlocksBefore int
	FreeBlocksAfter  int
	UserWrites       uint64
	NANDWrites       uint64
	WAF              float64
}

// GCRecorder is a hook that records every finished garbage collection pass.
// One GCRecorder can be attached to many devices.
type GCRecorder struct {
	recorder datarecording.DataRecorder
	ids      id.Generator
}

// NewGCRecorder creates the GC table and returns a recorder for it.
func NewGCRecorder(
	recorder datarecording.DataRecorder,
	ids id.Generator,
) *GCRecorder {
	recorder.CreateTable(GCTable, GCRow{})

	return &GCRecorder{
		recorder: recorder,
		ids:      ids,
	}
}

// Func records the pass if the hook is triggered at the end of a GC.
func (r *GCRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != ftl.HookPosGCEnd {
		return
	}

	report := ctx.Detail.(ftl.GCReport)

	row := GCRow{
		ID:               r.ids.Generate(),
		Seq:              report.Seq,
		VictimID:         report.VictimID,
		MigratedPages:    report.MigratedPages,
		FreeBlocksBefore: report.FreeBlocksBefore,
		FreeBlocksAfter:  report.FreeBlocksAfter,
		UserWrites:       report.UserWrites,
		NANDWrites:       report.NANDWrites,
	}

	if report.UserWrites > 0 {
		row.WAF = float64(report.NANDWrites) / float64(report.UserWrites)
	}

	if named, ok := ctx.Domain.(NamedHookable); ok {
		row.Device = named.Name()
	}

	r.recorder.InsertData(GCTable, row)
}
