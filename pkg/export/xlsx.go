// Package export writes finished plans to spreadsheet and columnar files.
package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// Plan workbook sheet names.
const (
	SheetSchedule    = "ProductionSchedule"
	SheetBatches     = "BatchSummary"
	SheetUtilization = "LineUtilization"
	SheetChangeovers = "ColorChangeover"
	SheetColorShares = "LineColorDistribution"
	SheetSamples     = "Sample"
	SheetUnmatched   = "NotMatchedOrders"
	SheetUnscheduled = "Unscheduled"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
	headerFill      = "#DDEBF7"
)

type sheet struct {
	name   string
	header []string
	rows   [][]interface{}
}

// Sheets returns the workbook layout for plan, omitting empty sheets. The
// schedule sheet is always present.
func Sheets(plan *model.Plan) []string {
	var names []string
	for _, s := range buildSheets(plan) {
		names = append(names, s.name)
	}
	return names
}

func buildSheets(plan *model.Plan) []sheet {
	all := []sheet{
		scheduleSheet(plan.Allocations),
		batchSheet(plan.BatchStatus),
		utilizationSheet(plan.Utilization),
		changeoverSheet(plan.Changeovers),
		colorShareSheet(plan.ColorShares),
		sampleSheet(plan.Samples),
		unmatchedSheet(plan.Unmatched),
		unscheduledSheet(plan.Unscheduled),
	}
	out := []sheet{all[0]}
	for _, s := range all[1:] {
		if len(s.rows) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// WriteXLSX writes the plan workbook to w.
func WriteXLSX(w io.Writer, plan *model.Plan) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, s := range buildSheets(plan) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, header); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return perrors.Wrap(err, perrors.CodeWriteFailed, "write plan workbook")
	}
	return nil
}

// WriteXLSXFile writes the plan workbook to path.
func WriteXLSXFile(path string, plan *model.Plan) error {
	out, err := os.Create(path)
	if err != nil {
		return perrors.Wrap(err, perrors.CodeWriteFailed, "create plan workbook").WithContext("path", path)
	}
	if err := WriteXLSX(out, plan); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return fmt.Errorf("write %s header: %w", s.name, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(s.header), 1)
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", s.name, err)
	}
	for i, row := range s.rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", s.name, i+2, err)
		}
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func scheduleSheet(records []model.AllocationRecord) sheet {
	s := sheet{
		name: SheetSchedule,
		header: []string{"Batch ID", "Orders", "Line", "Date", "Shift", "Allocated Kg",
			"Start", "End", "No. of Hours", "Color Code", "Color Family", "Count", "Blend", "Yarn Type"},
	}
	for _, r := range records {
		s.rows = append(s.rows, []interface{}{
			r.BatchID, r.Orders, r.Line, r.Date.Format(dateLayout), r.Shift, r.AllocatedKg,
			r.Start.Format(timestampLayout), r.End.Format(timestampLayout), r.Hours,
			r.ColorCode, r.ColorFamily, r.Count, r.Blend, r.YarnType,
		})
	}
	return s
}

func batchSheet(rows []model.BatchStatus) sheet {
	s := sheet{
		name: SheetBatches,
		header: []string{"Batch ID", "Orders", "Count", "Blend", "Yarn Type", "Color Code",
			"Color Family", "Total Qty", "Completion", "Hours Taken"},
	}
	for _, b := range rows {
		s.rows = append(s.rows, []interface{}{
			b.BatchID, b.Orders, b.Count, b.Blend, b.YarnType, b.ColorCode,
			b.ColorFamily, b.TotalQty, formatTime(b.CompletionAt), b.HoursTaken,
		})
	}
	return s
}

func utilizationSheet(rows []model.LineUtilization) sheet {
	s := sheet{
		name:   SheetUtilization,
		header: []string{"Line", "Date", "Capacity Kg", "Used Kg", "Utilization %"},
	}
	for _, u := range rows {
		s.rows = append(s.rows, []interface{}{u.Line, u.Date.Format(dateLayout), u.CapacityKg, u.UsedKg, u.UtilPct})
	}
	return s
}

func changeoverSheet(rows []model.ColorChangeover) sheet {
	s := sheet{
		name:   SheetChangeovers,
		header: []string{"Line", "Date", "Shift", "From Color", "To Color"},
	}
	for _, c := range rows {
		s.rows = append(s.rows, []interface{}{c.Line, c.Date.Format(dateLayout), c.Shift, c.FromColor, c.ToColor})
	}
	return s
}

func colorShareSheet(rows []model.LineColorShare) sheet {
	s := sheet{
		name:   SheetColorShares,
		header: []string{"Line", "Color Family", "Total Kg", "Percentage"},
	}
	for _, c := range rows {
		s.rows = append(s.rows, []interface{}{c.Line, c.ColorFamily, c.TotalKg, c.Percentage})
	}
	return s
}

func sampleSheet(orders []model.Order) sheet {
	s := sheet{
		name: SheetSamples,
		header: []string{"PI NO", "Yarn Count", "Composition", "Yarn Type", "Color Code",
			"Color Family", "Quantity", "Due Date", "Customer"},
	}
	for _, o := range orders {
		due := ""
		if o.DueDate != nil {
			due = o.DueDate.Format(dateLayout)
		}
		s.rows = append(s.rows, []interface{}{
			o.ID, o.Count, o.Composition, o.YarnType, o.ColorCode,
			o.ColorFamily, o.Quantity, due, o.Customer,
		})
	}
	return s
}

func unmatchedSheet(rows []model.UnmatchedOrder) sheet {
	s := sheet{
		name: SheetUnmatched,
		header: []string{"PI NO", "Yarn Count", "Blend", "Yarn Type", "Color Code",
			"Color Family", "Required Qty", "Code", "Reason"},
	}
	for _, u := range rows {
		s.rows = append(s.rows, []interface{}{
			u.OrderID, u.Count, u.Composition, u.YarnType, u.ColorCode,
			u.ColorFamily, u.Quantity, u.Code, u.Reason,
		})
	}
	return s
}

func unscheduledSheet(rows []model.UnscheduledQuantity) sheet {
	s := sheet{
		name:   SheetUnscheduled,
		header: []string{"Batch ID", "Orders", "Required Qty", "Allocated Qty", "Remaining Qty"},
	}
	for _, u := range rows {
		s.rows = append(s.rows, []interface{}{u.BatchID, u.Orders, u.RequiredQty, u.AllocatedQty, u.RemainingQty})
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
