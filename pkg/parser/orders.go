package parser

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// OrderSheet is the result of reading an order workbook.
type OrderSheet struct {
	Sheet     string
	HeaderRow int // 1-based
	Columns   []string
	Orders    []model.Order
}

// OrderReader reads customer orders from loosely formatted workbooks: the
// header may sit below a letterhead, columns go by several names and the
// data may live on any sheet.
type OrderReader struct {
	cfg Config
}

// NewOrderReader creates an OrderReader.
func NewOrderReader(cfg Config) *OrderReader {
	if cfg.HeaderScanRows <= 0 {
		cfg.HeaderScanRows = 60
	}
	if cfg.MinRequiredColumns <= 0 {
		cfg.MinRequiredColumns = 3
	}
	return &OrderReader{cfg: cfg}
}

// ReadFile opens path and reads orders from it.
func (p *OrderReader) ReadFile(ctx context.Context, path string) (*OrderSheet, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, perrors.New(perrors.CodeInvalidFormat, "unsupported order file").WithContext("path", path)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.FileNotFound(path)
		}
		return nil, fmt.Errorf("open orders: %w", err)
	}
	defer f.Close()
	return p.Read(ctx, f, format)
}

// Read picks the sheet with the most required columns and converts its
// rows to orders. Blank rows are skipped.
func (p *OrderReader) Read(ctx context.Context, r io.Reader, format Format) (*OrderSheet, error) {
	tables, err := readTables(ctx, r, format)
	if err != nil {
		return nil, err
	}

	var best *table
	var bestIdx map[string]int
	var bestCols []string
	bestRow, bestHits := 0, -1
	for i := range tables {
		t := &tables[i]
		if len(t.rows) == 0 {
			continue
		}
		hdr := detectHeader(t.rows, p.cfg.HeaderScanRows)
		idx := columnIndex(t.rows[hdr])
		if hits := requiredHits(idx); hits > bestHits {
			best, bestIdx, bestRow, bestHits = t, idx, hdr, hits
			bestCols = t.rows[hdr]
		}
	}
	if best == nil || bestHits < p.cfg.MinRequiredColumns {
		return nil, ErrNoTable
	}
	if _, ok := bestIdx[ColQuantity]; !ok {
		return nil, perrors.MissingColumn(ColQuantity, bestCols)
	}

	// Color family falls back to the plain color column.
	familyCol := lookup(bestIdx, ColColorFamily)
	if familyCol < 0 {
		familyCol = lookup(bestIdx, ColColor)
	}

	var (
		idCol       = lookup(bestIdx, ColOrderID)
		countCol    = lookup(bestIdx, ColCount)
		compCol     = lookup(bestIdx, ColComposition)
		typeCol     = lookup(bestIdx, ColYarnType)
		codeCol     = lookup(bestIdx, ColColorCode)
		qtyCol      = lookup(bestIdx, ColQuantity)
		dueCol      = lookup(bestIdx, ColDueDate)
		customerCol = lookup(bestIdx, ColCustomer)
	)

	sheet := &OrderSheet{
		Sheet:     best.name,
		HeaderRow: bestRow + 1,
		Columns:   bestCols,
	}
	for i := bestRow + 1; i < len(best.rows); i++ {
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ErrContextCanceled
			default:
			}
		}

		row := best.rows[i]
		if blankRow(row) {
			continue
		}

		o := model.Order{
			ID:          cell(row, idCol),
			Composition: cell(row, compCol),
			YarnType:    cell(row, typeCol),
			ColorCode:   cell(row, codeCol),
			ColorFamily: cell(row, familyCol),
			Quantity:    parseNumber(cell(row, qtyCol)),
			Customer:    cell(row, customerCol),
			Row:         i + 1,
		}
		if n, ok := NormalizeCount(cell(row, countCol)); ok {
			o.Count = n
		}
		if due, err := parseDate(cell(row, dueCol)); err == nil {
			o.DueDate = &due
		}
		sheet.Orders = append(sheet.Orders, o)
	}
	return sheet, nil
}
