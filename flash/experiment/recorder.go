package experiment

import (
	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/sim/id"
)

// RunTable is the name of the table that holds one row per case and policy.
const RunTable = "ftl_run"

// RunRow is the recorded form of a Result.
type RunRow struct {
	ID               string
	Simulation       string
	Experiment       string
	CaseName         string
	Device           string
	Policy           string
	Workload         string
	Seed             int64
	NumBlocks        int
	NumLBAs          int
	PagesPerBlock    int
	PhysicalPages    int
	OverProvisioning float64
	Iterations       int
	Completed        int
	DeviceFull       bool
	UserWrites       uint64
	NANDWrites       uint64
	WAF              float64
	GCCount          uint64
	MigratedPages    uint64
	TotalErases      int
	WearMin          int
	WearMax          int
	WearAvg          float64
	WearGap          int
}

type runRecorder struct {
	recorder     datarecording.DataRecorder
	ids          id.Generator
	simulationID string
}

func newRunRecorder(
	recorder datarecording.DataRecorder,
	ids id.Generator,
	simulationID string,
) *runRecorder {
	recorder.CreateTable(RunTable, RunRow{})

	return &runRecorder{
		recorder:     recorder,
		ids:          ids,
		simulationID: simulationID,
	}
}

func (r *runRecorder) record(experiment string, result Result) {
	s := result.Status
	tc := result.Case

	r.recorder.InsertData(RunTable, RunRow{
		ID:               r.ids.Generate(),
		Simulation:       r.simulationID,
		Experiment:       experiment,
		CaseName:         tc.Name,
		Device:           s.Name,
		Policy:           result.Policy,
		Workload:         tc.Workload,
		Seed:             tc.Seed,
		NumBlocks:        tc.NumBlocks,
		NumLBAs:          tc.NumLBAs,
		PagesPerBlock:    tc.PagesPerBlock,
		PhysicalPages:    tc.PhysicalPages(),
		OverProvisioning: tc.OverProvisioning(),
		Iterations:       result.Iterations,
		Completed:        result.Completed,
		DeviceFull:       result.DeviceFull,
		UserWrites:       s.UserWrites,
		NANDWrites:       s.NANDWrites,
		WAF:              s.WAF,
		GCCount:          s.GCCount,
		MigratedPages:    s.MigratedPages,
		TotalErases:      s.TotalErases,
		WearMin:          s.Wear.Min,
		WearMax:          s.Wear.Max,
		WearAvg:          s.Wear.Avg,
		WearGap:          s.Wear.Gap,
	})
}
