package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cyclo/millplan/pkg/parser"
	"github.com/cyclo/millplan/pkg/telemetry"
)

// Sources names the files a run reads.
type Sources struct {
	Orders   string
	Machines string

	// MachineSheet restricts machine lookup to one sheet; empty scans all.
	MachineSheet string
}

// Loaded is the result of LoadInputs.
type Loaded struct {
	Inputs Inputs
	Sheet  *parser.OrderSheet
}

// LoadInputs reads the order and machine workbooks concurrently. The first
// failure cancels the other read.
func LoadInputs(ctx context.Context, src Sources, cfg parser.Config) (*Loaded, error) {
	ctx, span := telemetry.StartSpan(ctx, "planner.load")
	defer span.End()

	out := &Loaded{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sheet, err := parser.NewOrderReader(cfg).ReadFile(gctx, src.Orders)
		if err != nil {
			return fmt.Errorf("read orders: %w", err)
		}
		out.Sheet = sheet
		out.Inputs.Orders = sheet.Orders
		return nil
	})

	g.Go(func() error {
		mcfg := cfg
		mcfg.Sheet = src.MachineSheet
		machines, err := parser.ReadMachinesFile(gctx, src.Machines, mcfg)
		if err != nil {
			return fmt.Errorf("read machines: %w", err)
		}
		out.Inputs.Machines = machines
		return nil
	})

	if err := g.Wait(); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return out, nil
}
