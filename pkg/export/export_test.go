package export

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"github.com/cyclo/millplan/internal/model"
)

var day0 = time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)

func samplePlan() *model.Plan {
	rec := func(id, line, shift string, offset time.Duration, kg float64) model.AllocationRecord {
		start := day0.Add(offset)
		return model.AllocationRecord{
			BatchID: id, Orders: "PI-" + id, Line: line, Date: day0, Shift: shift,
			AllocatedKg: kg, Start: start, End: start.Add(8 * time.Hour), Hours: 8,
			ColorCode: "C1", ColorFamily: "Red", Count: 20, Blend: "100 CYL Cot", YarnType: "Carded",
		}
	}
	return &model.Plan{
		RunID: "run-1",
		Start: day0,
		Allocations: []model.AllocationRecord{
			rec("b1", "Line 1", "A", 0, 1666.67),
			rec("b1", "Line 1", "B", 8*time.Hour, 1666.67),
			rec("b1", "Line 1", "C", 16*time.Hour, 1666.66),
		},
		BatchStatus: []model.BatchStatus{{BatchID: "b1", TotalQty: 5000, CompletionAt: day0.Add(24 * time.Hour), HoursTaken: 24}},
		Utilization: []model.LineUtilization{{Line: "Line 1", Date: day0, CapacityKg: 5000, UsedKg: 5000, UtilPct: 100}},
		Unmatched:   []model.UnmatchedOrder{{OrderID: "PI-9", Code: "E601", Reason: "Blend not mapped: Hemp"}},
	}
}

func TestSheets_SkipsEmpty(t *testing.T) {
	want := []string{SheetSchedule, SheetBatches, SheetUtilization, SheetUnmatched}
	if got := Sheets(samplePlan()); !reflect.DeepEqual(got, want) {
		t.Errorf("Sheets() = %v, want %v", got, want)
	}
	if got := Sheets(&model.Plan{}); !reflect.DeepEqual(got, []string{SheetSchedule}) {
		t.Errorf("Sheets(empty) = %v, want schedule only", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, samplePlan()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, Sheets(samplePlan())) {
		t.Errorf("sheets = %v", got)
	}

	rows, err := f.GetRows(SheetSchedule)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("schedule rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "Batch ID" || rows[0][2] != "Line" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "Line 1" || rows[1][3] != "2025-11-04" || rows[2][6] != "2025-11-04 08:00:00" {
		t.Errorf("row 1 = %v, row 2 = %v", rows[1], rows[2])
	}

	unmatched, _ := f.GetRows(SheetUnmatched)
	if len(unmatched) != 2 || unmatched[1][8] != "Blend not mapped: Hemp" {
		t.Errorf("unmatched rows = %v", unmatched)
	}
}

func TestWriteXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	if err := WriteXLSXFile(path, samplePlan()); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	plan := samplePlan()
	var buf bytes.Buffer
	n, err := WriteParquet(&buf, plan.Allocations, ParquetOptions{Compression: "snappy", BatchSize: 2})
	if err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}
	if n != 3 {
		t.Errorf("rows written = %d, want 3", n)
	}

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(buf.Bytes()),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	defer tbl.Release()

	if tbl.NumRows() != 3 {
		t.Errorf("NumRows = %d, want 3", tbl.NumRows())
	}
	if got := tbl.Schema().Field(colAllocatedKg).Name; got != "allocated_kg" {
		t.Errorf("column %d = %q, want allocated_kg", colAllocatedKg, got)
	}
	if int(tbl.NumCols()) != len(AllocationSchema().Fields()) {
		t.Errorf("NumCols = %d", tbl.NumCols())
	}
}

func TestWriteParquetFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.parquet")
	n, err := WriteParquetFile(path, nil, DefaultParquetOptions())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestDate32(t *testing.T) {
	if got := date32(time.Date(1970, 1, 2, 13, 0, 0, 0, time.UTC)); got != 1 {
		t.Errorf("date32 = %d, want 1", got)
	}
}
