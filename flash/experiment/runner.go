package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/flash/workload"
	"github.com/sarchlab/ftlsim/simulation"
)

// Default number of host writes per LBA.
const (
	WAFWritesPerLBA     = 10
	CompareWritesPerLBA = 100
)

// A Result is the outcome of running one case on one device.
type Result struct {
	Case       Case
	Policy     string
	Iterations int
	Completed  int
	DeviceFull bool
	Status     ftl.Status
}

// A Comparison holds the results of a baseline and a wear-leveling device
// that received the same writes.
type Comparison struct {
	Case         Case
	Baseline     Result
	WearLeveling Result
}

// A Runner runs experiments inside a simulation. Every device it creates is
// registered to the simulation, so it is recorded, traced and monitored.
type Runner struct {
	sim *simulation.Simulation
	out io.Writer

	runRecorder *runRecorder
}

// NewRunner creates a runner that prints its report to out.
func NewRunner(sim *simulation.Simulation, out io.Writer) *Runner {
	r := &Runner{
		sim: sim,
		out: out,
	}

	if sim.GetDataRecorder() != nil {
		r.runRecorder = newRunRecorder(
			sim.GetDataRecorder(), sim.IDGenerator(), sim.ID())
	}

	return r
}

// RunWAF writes random data to a device per case and reports its write
// amplification. Cases that do not set iterations get WAFWritesPerLBA writes
// per LBA.
func (r *Runner) RunWAF(ctx context.Context, config Config) ([]Result, error) {
	fmt.Fprintf(r.out, "=== WAF Experiment Start ===\n\n")

	results := make([]Result, 0, len(config.Cases))

	for i, tc := range config.Cases {
		printCaseHeader(r.out, i, tc)

		iterations := iterationsOf(tc, WAFWritesPerLBA)
		device := r.sim.RegisterDevice(
			tc.newDevice(tc.Policy, config.WearThreshold))

		completed, err := r.drive(ctx, tc, iterations, device)
		if err != nil && !errors.Is(err, ftl.ErrDeviceFull) {
			return results, err
		}

		if err != nil {
			fmt.Fprintf(r.out, "    [Error] Write failed: %v\n", err)
		}

		result := r.collect(tc, tc.Policy, iterations, completed, err, device)
		results = append(results, result)
		r.record("waf", result)

		fmt.Fprintf(r.out, "    [Result] WAF: %.4f\n", result.Status.WAF)
		fmt.Fprintf(r.out, "----------------------------------------\n\n")
	}

	return results, nil
}

// Compare feeds the same random writes to a baseline and a wear-leveling
// device per case and reports the write amplification and the wear of both.
// Cases that do not set iterations get CompareWritesPerLBA writes per LBA.
func (r *Runner) Compare(
	ctx context.Context,
	config Config,
) ([]Comparison, error) {
	fmt.Fprintf(r.out, "=== Wear Leveling Experiment Start ===\n\n")

	comparisons := make([]Comparison, 0, len(config.Cases))

	for i, tc := range config.Cases {
		printCaseHeader(r.out, i, tc)

		iterations := iterationsOf(tc, CompareWritesPerLBA)
		baseline := r.sim.RegisterDevice(
			tc.newDevice(PolicyBaseline, config.WearThreshold))
		leveled := r.sim.RegisterDevice(
			tc.newDevice(PolicyWearLeveling, config.WearThreshold))

		completed, err := r.drive(ctx, tc, iterations, baseline, leveled)
		if err != nil && !errors.Is(err, ftl.ErrDeviceFull) {
			return comparisons, err
		}

		if err != nil {
			fmt.Fprintf(r.out, "    [Error] Write failed: %v\n", err)
		}

		c := Comparison{
			Case: tc,
			Baseline: r.collect(tc, PolicyBaseline,
				iterations, completed, err, baseline),
			WearLeveling: r.collect(tc, PolicyWearLeveling,
				iterations, completed, err, leveled),
		}
		comparisons = append(comparisons, c)
		r.record("compare", c.Baseline)
		r.record("compare", c.WearLeveling)

		printPolicyResult(r.out, "BASELINE", c.Baseline)
		printPolicyResult(r.out, "WEAR LEVELING", c.WearLeveling)
		fmt.Fprintf(r.out, "----------------------------------------\n\n")
	}

	return comparisons, nil
}

func (r *Runner) drive(
	ctx context.Context,
	tc Case,
	iterations int,
	devices ...*simulation.SharedDevice,
) (int, error) {
	wl, err := tc.newWorkload()
	if err != nil {
		return 0, err
	}

	writers := make([]workload.Writer, len(devices))
	for i, d := range devices {
		writers[i] = d
	}

	bar := r.sim.CreateProgressBar(tc.Name, uint64(iterations))
	defer r.sim.CompleteProgressBar(bar)

	return workload.Run(ctx, wl, iterations,
		func(int) { bar.IncrementFinished(1) },
		writers...)
}

func (r *Runner) collect(
	tc Case,
	policy string,
	iterations, completed int,
	err error,
	device *simulation.SharedDevice,
) Result {
	return Result{
		Case:       tc,
		Policy:     policy,
		Iterations: iterations,
		Completed:  completed,
		DeviceFull: errors.Is(err, ftl.ErrDeviceFull),
		Status:     device.Stats(),
	}
}

func (r *Runner) record(experiment string, result Result) {
	if r.runRecorder == nil {
		return
	}

	r.runRecorder.record(experiment, result)
}

func iterationsOf(tc Case, writesPerLBA int) int {
	if tc.Iterations > 0 {
		return tc.Iterations
	}

	return tc.NumLBAs * writesPerLBA
}

func printCaseHeader(w io.Writer, i int, tc Case) {
	fmt.Fprintf(w, ">>> Running Test Case #%d (%s)\n", i+1, tc.Name)
	fmt.Fprintf(w, "    Config: Blocks = %d, LBAs = %d, Workload = %s\n",
		tc.NumBlocks, tc.NumLBAs, tc.Workload)
	fmt.Fprintf(w, "    Physical Pages: %d, Logical Pages: %d\n",
		tc.PhysicalPages(), tc.NumLBAs)
	fmt.Fprintf(w, "    Over-Provisioning (OP): %.2f%%\n",
		tc.OverProvisioning()*100)
}

func printPolicyResult(w io.Writer, title string, result Result) {
	fmt.Fprintf(w, "    [Result] %s\n", title)
	fmt.Fprintf(w, "    WAF: %.4f\n", result.Status.WAF)
	fmt.Fprintf(w, "    Wear Leveling: %s\n", result.Status.Wear)
}
