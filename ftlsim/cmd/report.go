package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/flash/experiment"
	"github.com/sarchlab/ftlsim/tracing"
)

var reportCmd = &cobra.Command{
	Use:   "report <file.sqlite3>",
	Short: "Summarize the runs recorded in a SQLite file.",
	Long: "`report results.sqlite3` lists the recorded runs and, with " +
		"--gc, the recorded garbage collection passes.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}

		where, _ := cmd.Flags().GetString("where")
		limit, _ := cmd.Flags().GetInt("limit")
		showGC, _ := cmd.Flags().GetBool("gc")

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		params := datarecording.QueryParams{
			Where: where,
			Limit: limit,
		}

		err := reportRuns(cmd, reader, params)
		if err != nil {
			return err
		}

		if !showGC {
			return nil
		}

		return reportGC(cmd, reader, datarecording.QueryParams{Limit: limit})
	},
}

func init() {
	reportCmd.Flags().String("where", "",
		`Filter the runs, for example "WAF > 1.5".`)
	reportCmd.Flags().Int("limit", 0, "Show at most this many rows.")
	reportCmd.Flags().Bool("gc", false, "Also list the GC passes.")
	rootCmd.AddCommand(reportCmd)
}

func reportRuns(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	params datarecording.QueryParams,
) error {
	params.OrderBy = "rowid"
	reader.MapTable(experiment.RunTable, experiment.RunRow{})

	rows, total, err := reader.Query(cmd.Context(), experiment.RunTable, params)
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "CASE\tPOLICY\tWORKLOAD\tBLOCKS\tLBAS\tOP\tWRITES\tWAF\tWEAR GAP")

	for _, row := range rows {
		r := row.(*experiment.RunRow)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f%%\t%d\t%.4f\t%d\n",
			r.CaseName, r.Policy, r.Workload, r.NumBlocks, r.NumLBAs,
			r.OverProvisioning*100, r.UserWrites, r.WAF, r.WearGap)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d runs\n", len(rows), total)

	return nil
}

func reportGC(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	params datarecording.QueryParams,
) error {
	params.OrderBy = "Device, Seq"
	reader.MapTable(tracing.GCTable, tracing.GCRow{})

	rows, total, err := reader.Query(cmd.Context(), tracing.GCTable, params)
	if err != nil {
		return err
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "DEVICE\tSEQ\tVICTIM\tMIGRATED\tFREE BEFORE\tFREE AFTER\tWAF")

	for _, row := range rows {
		r := row.(*tracing.GCRow)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.4f\n",
			r.Device, r.Seq, r.VictimID, r.MigratedPages,
			r.FreeBlocksBefore, r.FreeBlocksAfter, r.WAF)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d GC passes\n", len(rows), total)

	return nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}
