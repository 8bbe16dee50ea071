package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyclo/millplan/pkg/report"
	"github.com/cyclo/millplan/pkg/store"
	"github.com/cyclo/millplan/pkg/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			for _, p := range manager.GetPaths() {
				fmt.Fprintf(os.Stdout, "# loaded %s\n", p)
			}
		}
		data, err := manager.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "Print the line, pool and shift layout",
	Run: func(cmd *cobra.Command, args []string) {
		tui.PrintLines(os.Stdout, manager.Get())
	},
}

var (
	runsDB      string
	runsLoads   string
	runsParquet string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List plans persisted to DuckDB",
	Long: `List plan runs saved with --duckdb, show per-line load of one run, or
export its allocations to Parquet.

Examples:
  millplan runs --db plans.duckdb
  millplan runs --db plans.duckdb --loads <run-id>
  millplan runs --db plans.duckdb --loads <run-id> --parquet run.parquet`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsDB, "db", "", "DuckDB database (default: storage.duckdb from config)")
	runsCmd.Flags().StringVar(&runsLoads, "loads", "", "Show per-line load for this run ID")
	runsCmd.Flags().StringVar(&runsParquet, "parquet", "", "Export the --loads run's allocations to this Parquet file")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(linesCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	path := runsDB
	if path == "" {
		path = manager.Get().Storage.DuckDB
	}
	if path == "" {
		return fmt.Errorf("no database: pass --db or set storage.duckdb")
	}

	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if runsLoads == "" {
		runs, err := db.Runs(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.RunID,
				r.GeneratedAt.Format("2006-01-02 15:04"),
				r.Start.Format("2006-01-02"),
				fmt.Sprintf("%d", r.TotalOrders),
				fmt.Sprintf("%d", r.Batches),
				fmt.Sprintf("%.2f", r.AllocatedKg),
			})
		}
		tui.PrintTable(os.Stdout, "RUNS", []string{"Run", "Generated", "Start", "PI", "Batches", "Allocated kg"}, rows)
		return nil
	}

	loads, err := db.LineLoads(ctx, runsLoads)
	if err != nil {
		return err
	}
	tui.PrintTable(os.Stdout, "LINE LOAD "+runsLoads, []string{"Line", "Days", "Kg", "Hours"}, loadRows(loads))

	if runsParquet != "" {
		if err := db.ExportParquet(ctx, runsLoads, runsParquet, "snappy"); err != nil {
			return err
		}
		tui.PrintExported(os.Stdout, "parquet", runsParquet)
	}
	return nil
}

func loadRows(loads []store.LineLoad) [][]string {
	rows := make([][]string, 0, len(loads))
	for _, l := range loads {
		rows = append(rows, []string{
			l.Line,
			fmt.Sprintf("%d", l.Days),
			fmt.Sprintf("%.2f", report.Round(l.AllocatedKg, 2)),
			fmt.Sprintf("%.2f", report.Round(l.Hours, 2)),
		})
	}
	return rows
}
