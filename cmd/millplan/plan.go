package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/export"
	"github.com/cyclo/millplan/pkg/parser"
	"github.com/cyclo/millplan/pkg/planner"
	"github.com/cyclo/millplan/pkg/storage/s3"
	"github.com/cyclo/millplan/pkg/store"
	"github.com/cyclo/millplan/pkg/tui"
	"github.com/cyclo/millplan/pkg/validation"
)

var (
	inputFile    string
	machinesFile string
	outputFile   string
	parquetFile  string
	duckdbFile   string
	startFlag    string
	uploadS3     bool
	jsonOutput   bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a production plan from an order workbook",
	Long: `Read customer orders and the machine capability table, then estimate,
batch, sequence and allocate them across the configured lines.

Examples:
  millplan plan -i orders.xlsx -m machines.xlsx -o plan.xlsx
  millplan plan -i orders.xlsx --start 2025-11-04 --json
  millplan plan -i orders.xlsx -o plan.xlsx --parquet plan.parquet --duckdb plans.duckdb --s3`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Order workbook (xlsx or csv)")
	planCmd.Flags().StringVarP(&machinesFile, "machines", "m", "", "Machine capability workbook (default: machines.file from config)")
	planCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Plan workbook to write")
	planCmd.Flags().StringVar(&parquetFile, "parquet", "", "Write allocation records as Parquet")
	planCmd.Flags().StringVar(&duckdbFile, "duckdb", "", "Persist the run to a DuckDB database (default: storage.duckdb from config)")
	planCmd.Flags().StringVar(&startFlag, "start", "", "Plan start date YYYY-MM-DD (default: planning.start_date or today)")
	planCmd.Flags().BoolVar(&uploadS3, "s3", false, "Upload written files to storage.s3.bucket")
	planCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON instead of the summary")
	planCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(planCmd)
}

// outputs names what one planning run writes.
type outputs struct {
	XLSX    string
	Parquet string
	DuckDB  string
	S3      bool
}

// written is one exported artifact.
type written struct {
	Kind     string
	Location string
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	start, err := parseStart(startFlag)
	if err != nil {
		return err
	}

	out := outputs{XLSX: outputFile, Parquet: parquetFile, DuckDB: duckdbFile, S3: uploadS3}
	if out.DuckDB == "" {
		out.DuckDB = a.cfg.Storage.DuckDB
	}

	if err := validation.ValidatePlan(validation.PlanPaths{
		Orders:   inputFile,
		Machines: resolveMachines(a),
		XLSX:     out.XLSX,
		Parquet:  out.Parquet,
		DuckDB:   out.DuckDB,
	}); err != nil {
		tui.PrintError(os.Stderr, err)
		return err
	}

	if !jsonOutput {
		tui.PrintHeader(os.Stdout, version)
	}

	began := time.Now()
	plan, files, err := execute(ctx, a, inputFile, resolveMachines(a), start, out)
	if err != nil {
		tui.PrintError(os.Stderr, err)
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	tui.PrintSummary(os.Stdout, plan, time.Since(began))
	for _, f := range files {
		tui.PrintExported(os.Stdout, f.Kind, f.Location)
	}
	return nil
}

// execute loads inputs, plans and writes every requested output.
func execute(ctx context.Context, a *app, orders, machines string, start time.Time, out outputs) (*model.Plan, []written, error) {
	if machines == "" {
		return nil, nil, fmt.Errorf("no machine workbook: pass --machines or set machines.file")
	}

	steps := 2
	for _, set := range []bool{out.XLSX != "", out.Parquet != "", out.DuckDB != "", out.S3} {
		if set {
			steps++
		}
	}
	progress := tui.ShowProgress(os.Stderr, steps, "planning")
	defer progress.Finish()

	loaded, err := planner.LoadInputs(ctx, planner.Sources{
		Orders:       orders,
		Machines:     machines,
		MachineSheet: a.cfg.Machines.Sheet,
	}, parser.DefaultConfig())
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("inputs loaded",
		"sheet", loaded.Sheet.Sheet,
		"header_row", loaded.Sheet.HeaderRow,
		"orders", len(loaded.Inputs.Orders),
		"machines", len(loaded.Inputs.Machines),
	)
	progress.Add(1)

	in := loaded.Inputs
	in.Start = start
	plan, err := a.planner.Plan(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	progress.Add(1)

	var files []written

	if out.XLSX != "" {
		if err := export.WriteXLSXFile(out.XLSX, plan); err != nil {
			return plan, files, err
		}
		files = append(files, written{"workbook", out.XLSX})
		progress.Add(1)
	}

	if out.Parquet != "" {
		if _, err := export.WriteParquetFile(out.Parquet, plan.Allocations, export.DefaultParquetOptions()); err != nil {
			return plan, files, err
		}
		files = append(files, written{"parquet", out.Parquet})
		progress.Add(1)
	}

	if out.DuckDB != "" {
		if err := persist(ctx, out.DuckDB, plan); err != nil {
			return plan, files, err
		}
		files = append(files, written{"duckdb", out.DuckDB})
		progress.Add(1)
	}

	if out.S3 {
		uploaded, err := upload(ctx, a, plan.RunID, files)
		if err != nil {
			return plan, files, err
		}
		files = append(files, uploaded...)
		progress.Add(1)
	}

	return plan, files, nil
}

func persist(ctx context.Context, path string, plan *model.Plan) error {
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Save(ctx, plan)
}

// upload copies the local files already written to the configured bucket.
func upload(ctx context.Context, a *app, runID string, local []written) ([]written, error) {
	client, err := s3.NewClient(ctx, s3.FromConfig(a.cfg.Storage.S3))
	if err != nil {
		return nil, err
	}

	var out []written
	for _, f := range local {
		uri, err := client.UploadFile(ctx, runID, f.Location)
		if err != nil {
			return out, err
		}
		a.log.Info("uploaded", "file", filepath.Base(f.Location), "uri", uri)
		out = append(out, written{"s3 " + f.Kind, uri})
	}
	return out, nil
}

func resolveMachines(a *app) string {
	if machinesFile != "" {
		return machinesFile
	}
	return a.cfg.Machines.File
}

// parseStart returns the zero time for an empty flag, which lets the
// planner fall back to the configured start date.
func parseStart(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
