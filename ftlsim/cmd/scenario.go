package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/flash/workload"
	"github.com/sarchlab/ftlsim/simulation"
)

// A scenario is a fixed write pattern on a fixed device.
type scenario struct {
	name        string
	description string
	newDevice   func() *ftl.Comp
	workload    func() workload.Workload
	writes      func(c *ftl.Comp) int
	expectFull  bool
}

var scenarios = map[string]scenario{
	"a": {
		name:        "A",
		description: "100 writes to LBA 0 on 3 blocks",
		newDevice:   func() *ftl.Comp { return newScenarioDevice("A", 3, 100) },
		workload:    func() workload.Workload { return workload.NewCyclic(1) },
		writes:      func(*ftl.Comp) int { return 100 },
	},
	"b": {
		name:        "B",
		description: "1000 writes cycling through 100 LBAs on 5 blocks",
		newDevice:   func() *ftl.Comp { return newScenarioDevice("B", 5, 100) },
		workload:    func() workload.Workload { return workload.NewCyclic(100) },
		writes:      func(*ftl.Comp) int { return 1000 },
	},
	"c": {
		name:        "C",
		description: "rewriting a single LBA on a single block until it is full",
		newDevice:   func() *ftl.Comp { return newScenarioDevice("C", 1, 1) },
		workload:    func() workload.Workload { return workload.NewCyclic(1) },
		writes:      func(c *ftl.Comp) int { return c.PagesPerBlock() + 1 },
		expectFull:  true,
	},
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario [a|b|c]...",
	Short: "Run the built-in scenarios.",
	Long: "`scenario` runs the built-in scenarios, or only the given ones, " +
		"checks the device afterwards and prints write amplification and " +
		"wear. With --dump, it also prints the blocks and the mapping.",
	ValidArgs: []string{"a", "b", "c"},
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"a", "b", "c"}
		}

		dump, _ := cmd.Flags().GetBool("dump")

		return withSimulation(func(s *simulation.Simulation) error {
			for _, arg := range args {
				sc := scenarios[strings.ToLower(arg)]

				err := runScenario(cmd.Context(), s, sc, dump, cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("scenario %s: %w", sc.name, err)
				}
			}

			return nil
		})
	},
}

func init() {
	scenarioCmd.Flags().Bool("dump", false,
		"Print the blocks and the mapping table after each scenario.")
	rootCmd.AddCommand(scenarioCmd)
}

func newScenarioDevice(name string, numBlocks, numLBAs int) *ftl.Comp {
	return ftl.MakeBuilder().
		WithNumBlocks(numBlocks).
		WithNumLBAs(numLBAs).
		Build("Scenario" + name)
}

func runScenario(
	ctx context.Context,
	s *simulation.Simulation,
	sc scenario,
	dump bool,
	out io.Writer,
) error {
	comp := sc.newDevice()
	device := s.RegisterDevice(comp)
	writes := sc.writes(comp)

	fmt.Fprintf(out, "=== Scenario %s: %s ===\n", sc.name, sc.description)

	done, err := workload.Run(ctx, sc.workload(), writes, nil, device)

	switch {
	case errors.Is(err, ftl.ErrDeviceFull) && sc.expectFull:
		fmt.Fprintf(out, "Write #%d rejected: %v\n", done+1, ftl.ErrDeviceFull)
	case err != nil:
		return err
	case sc.expectFull:
		return fmt.Errorf("device accepted all %d writes", writes)
	}

	var validateErr error

	device.Do(func(c *ftl.Comp) {
		validateErr = c.Validate()

		fmt.Fprintf(out, "Writes: %d user, %d NAND, %d GC passes\n",
			c.UserWrites(), c.NANDWrites(), c.GCCount())
		fmt.Fprintf(out, "WAF: %.4f\n", c.WAF())
		fmt.Fprintf(out, "Wear: %s\n", c.WearMetrics())

		if dump {
			c.DumpBlocks(out)
			c.DumpMapping(out)
		}
	})

	fmt.Fprintln(out)

	return validateErr
}
