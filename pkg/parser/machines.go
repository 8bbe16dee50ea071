package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// Machine table headers.
const (
	ColMachineCount = "Counts"
	ColMachineBlend = "Blends"
	ColMachineType  = "Yarn Type"
	ColTwistFactor  = "twist factor"
	ColRotorRPM     = "rotor rpm"
)

// ReadMachinesFile opens path and reads the machine capability table.
func ReadMachinesFile(ctx context.Context, path string, cfg Config) ([]model.MachineProfile, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, perrors.New(perrors.CodeInvalidFormat, "unsupported machine file").WithContext("path", path)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.FileNotFound(path)
		}
		return nil, fmt.Errorf("open machines: %w", err)
	}
	defer f.Close()
	return ReadMachines(ctx, f, format, cfg)
}

// ReadMachines reads machine profiles from the first row-headed table of
// the configured sheet. Headers match case-insensitively. Rows without a
// count or twist factor are skipped.
func ReadMachines(ctx context.Context, r io.Reader, format Format, cfg Config) ([]model.MachineProfile, error) {
	tables, err := readTables(ctx, r, format)
	if err != nil {
		return nil, err
	}

	var t *table
	for i := range tables {
		if cfg.Sheet == "" || tables[i].name == cfg.Sheet {
			t = &tables[i]
			break
		}
	}
	if t == nil {
		return nil, perrors.New(perrors.CodeInvalidFormat, "machine sheet not found").WithContext("sheet", cfg.Sheet)
	}
	if len(t.rows) == 0 {
		return nil, nil
	}

	header := t.rows[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	col := func(name string) (int, error) {
		i, ok := idx[strings.ToLower(name)]
		if !ok {
			return -1, perrors.MissingColumn(name, header)
		}
		return i, nil
	}

	var cols [5]int
	for i, name := range []string{ColMachineCount, ColMachineBlend, ColMachineType, ColTwistFactor, ColRotorRPM} {
		if cols[i], err = col(name); err != nil {
			return nil, err
		}
	}

	profiles := make([]model.MachineProfile, 0, len(t.rows)-1)
	for _, row := range t.rows[1:] {
		if blankRow(row) {
			continue
		}
		count, ok := NormalizeCount(cell(row, cols[0]))
		if !ok {
			continue
		}
		tf := parseNumber(cell(row, cols[3]))
		if tf == 0 {
			continue
		}
		profiles = append(profiles, model.MachineProfile{
			Count:       count,
			Blend:       cell(row, cols[1]),
			YarnType:    cell(row, cols[2]),
			TwistFactor: tf,
			RotorRPM:    parseNumber(cell(row, cols[4])),
		})
	}
	return profiles, nil
}
