// Package parser reads order and machine capability tables from Excel
// workbooks and CSV files.
package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatCSV
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "xlsx", "xlsm", "excel":
		return FormatXLSX
	case "csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// DetectFormat infers the format from a file name.
func DetectFormat(path string) Format {
	return ParseFormat(filepath.Ext(path))
}

// Config holds parser configuration.
type Config struct {
	// HeaderScanRows is how many leading rows are searched for the header.
	HeaderScanRows int

	// MinRequiredColumns is the number of required order columns a sheet
	// must carry to be accepted.
	MinRequiredColumns int

	// Sheet restricts machine table reading to one sheet. Empty means the
	// first sheet.
	Sheet string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeaderScanRows:     60,
		MinRequiredColumns: 3,
	}
}

// table is one sheet of raw cell text.
type table struct {
	name string
	rows [][]string
}

// readTables loads every sheet of an input as raw strings. Excel cells are
// read unformatted so dates arrive as serial numbers.
func readTables(ctx context.Context, r io.Reader, format Format) ([]table, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(ctx, r)
	case FormatCSV:
		rows, err := csv.NewReader(r).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		return []table{{name: "csv", rows: rows}}, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readXLSX(ctx context.Context, r io.Reader) ([]table, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xlFile.Close()

	sheets := xlFile.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	tables := make([]table, 0, len(sheets))
	for _, name := range sheets {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		rows, err := xlFile.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			// Chart sheets and similar have no rows; skip them.
			continue
		}
		tables = append(tables, table{name: name, rows: rows})
	}
	return tables, nil
}

// cell returns the trimmed value at idx, or "" when the row is short.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
