// Package cmd provides the command-line interface of ftlsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ftlsim/simulation"
)

// settings holds the global flags, which can also be given as FTLSIM_*
// environment variables or in a .env file.
var settings = viper.New()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ftlsim",
	Short: "ftlsim simulates the flash translation layer of an SSD.",
	Long: `ftlsim simulates the flash translation layer of an SSD. It maps ` +
		`logical addresses onto NAND pages, collects garbage and reports ` +
		`write amplification and wear.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv(".env")
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db", "",
		"Record results into this SQLite file or clickhouse:// URL. "+
			"Recording is disabled if empty.")
	flags.String("trace", "",
		"Stream device events to csv:<file>, json:<file>, mysql:// "+
			"or mongodb://.")
	flags.Bool("monitor", false, "Serve the monitoring web page.")
	flags.Int("monitor-port", 0,
		"Port of the monitoring server. A random port is used if 0.")
	flags.Bool("open-browser", false, "Open the monitoring page.")
	flags.CountP("verbose", "v",
		"Log device events to stderr. Repeat to include invalidated pages.")

	settings.SetEnvPrefix("FTLSIM")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	err := settings.BindPFlags(flags)
	if err != nil {
		panic(err)
	}
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadDotEnv(filename string) error {
	err := godotenv.Load(filename)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", filename, err)
	}

	return nil
}

// newSimulation builds a simulation from the global flags.
func newSimulation() (*simulation.Simulation, error) {
	b := simulation.MakeBuilder()

	if db := settings.GetString("db"); db != "" {
		b = b.WithOutputFileName(db)
	} else {
		b = b.WithoutRecording()
	}

	if trace := settings.GetString("trace"); trace != "" {
		b = b.WithTrace(trace)
	}

	if settings.GetBool("monitor") {
		b = b.WithMonitoring().
			WithMonitorPort(settings.GetInt("monitor-port"))

		if settings.GetBool("open-browser") {
			b = b.WithBrowser()
		}
	}

	if verbosity := settings.GetInt("verbose"); verbosity > 0 {
		b = b.WithLogTracer(os.Stderr, verbosity > 1)
	}

	return b.Build()
}

// withSimulation runs f with a simulation built from the global flags and
// terminates the simulation afterwards.
func withSimulation(f func(s *simulation.Simulation) error) error {
	s, err := newSimulation()
	if err != nil {
		return err
	}

	runErr := f(s)
	termErr := s.Terminate()

	return errors.Join(runErr, termErr)
}
