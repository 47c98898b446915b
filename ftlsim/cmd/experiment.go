package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/ftlsim/flash/experiment"
	"github.com/sarchlab/ftlsim/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Measure the write amplification of every configured device.",
	Long: "`run --config waf.json` writes random data to one device per " +
		"case, ten writes per LBA unless the case sets iterations, and " +
		"reports the write amplification.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadExperimentConfig(cmd)
		if err != nil {
			return err
		}

		return withSimulation(func(s *simulation.Simulation) error {
			runner := experiment.NewRunner(s, cmd.OutOrStdout())
			_, err := runner.RunWAF(cmd.Context(), config)

			return err
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the baseline and the wear-leveling policies.",
	Long: "`compare --config waf.json` feeds the same random writes to a " +
		"baseline and a wear-leveling device per case, a hundred writes " +
		"per LBA unless the case sets iterations, and reports the write " +
		"amplification and the wear of both.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadExperimentConfig(cmd)
		if err != nil {
			return err
		}

		return withSimulation(func(s *simulation.Simulation) error {
			runner := experiment.NewRunner(s, cmd.OutOrStdout())
			_, err := runner.Compare(cmd.Context(), config)

			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, compareCmd} {
		c.Flags().StringP("config", "c", "waf.json",
			"The JSON or YAML file that lists the cases.")
		rootCmd.AddCommand(c)
	}
}

func loadExperimentConfig(cmd *cobra.Command) (experiment.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return experiment.LoadConfig(path)
}
