package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/diff"
	"github.com/cyclo/millplan/pkg/tui"
	"github.com/cyclo/millplan/pkg/validation"
	"github.com/cyclo/millplan/pkg/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <orders> <plan.xlsx>",
	Short: "Replan whenever the order or machine workbook changes",
	Long: `Plan once, then keep watching the order workbook and the machine table.
Every saved change rebuilds the plan workbook.

Examples:
  millplan watch orders.xlsx plan.xlsx
  millplan watch orders.xlsx plan.xlsx -m machines.xlsx`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&machinesFile, "machines", "m", "", "Machine capability workbook (default: machines.file from config)")
	watchCmd.Flags().StringVar(&startFlag, "start", "", "Plan start date YYYY-MM-DD")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before replanning")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	orders, output := args[0], args[1]
	machines := resolveMachines(a)
	if err := validation.ValidatePlan(validation.PlanPaths{
		Orders:   orders,
		Machines: machines,
		XLSX:     output,
	}); err != nil {
		return err
	}
	out := outputs{XLSX: output}

	// Changes to the two files fire independent timers; mu serializes them.
	var (
		mu   sync.Mutex
		last *model.Plan
	)
	replan := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		began := time.Now()
		plan, files, err := execute(ctx, a, orders, machines, start, out)
		if err != nil {
			return err
		}
		if last != nil {
			if d := diff.Compare(last, plan); d.Changed() {
				fmt.Fprintln(os.Stdout, d.String())
			} else {
				a.log.Info("plan unchanged", "run_id", plan.RunID)
			}
		}
		last = plan

		tui.PrintSummary(os.Stdout, plan, time.Since(began))
		for _, f := range files {
			tui.PrintExported(os.Stdout, f.Kind, f.Location)
		}
		return nil
	}

	tui.PrintHeader(os.Stdout, version)
	if err := replan(ctx); err != nil {
		tui.PrintError(os.Stderr, err)
	}

	w, err := watch.New(watchDebounce, a.log)
	if err != nil {
		return err
	}
	defer w.Close()

	w.OnChange = func(ctx context.Context, path string) error {
		return replan(ctx)
	}
	w.OnError = func(path string, err error) {
		tui.PrintError(os.Stderr, err)
	}

	if err := w.Watch(orders, machines); err != nil {
		return err
	}
	a.log.Info("watching for changes", "orders", orders, "machines", machines)

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
