// Package validation checks command-line paths before a planning run.
package validation

import (
	"os"
	"path/filepath"
	"strings"

	perrors "github.com/cyclo/millplan/pkg/errors"
	"github.com/cyclo/millplan/pkg/parser"
)

// MaxFileSize is the largest workbook accepted (256MB).
const MaxFileSize = 256 * 1024 * 1024

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// ValidateFilePath cleans path and makes it absolute.
func ValidateFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", perrors.New(perrors.CodeInvalidFormat, "empty file path")
	}

	if len(path) > MaxPathLength {
		return "", perrors.New(perrors.CodeInvalidFormat, "path too long").
			WithContext("maxLength", MaxPathLength)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", perrors.Wrap(err, perrors.CodeInvalidFormat, "invalid path")
	}
	return abs, nil
}

// ValidateInputFile checks that path is a readable xlsx or csv file.
func ValidateInputFile(path string) error {
	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return err
	}

	if parser.DetectFormat(cleanPath) == parser.FormatUnknown {
		return perrors.New(perrors.CodeInvalidFormat, "unsupported input format").
			WithContext("path", path).
			WithContext("supported", "xlsx, xlsm, csv")
	}

	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return perrors.FileNotFound(path)
	}
	if err != nil {
		return perrors.Wrap(err, perrors.CodeFileNotFound, "cannot access file")
	}

	if info.IsDir() {
		return perrors.New(perrors.CodeInvalidFormat, "path is a directory, expected file").
			WithContext("path", path)
	}

	if info.Size() > MaxFileSize {
		return perrors.New(perrors.CodeInvalidFormat, "file exceeds maximum size").
			WithContext("size", info.Size()).
			WithContext("maxSize", MaxFileSize)
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return perrors.Wrap(err, perrors.CodeFileNotFound, "cannot open file").WithContext("path", path)
	}
	file.Close()

	return nil
}

// ValidateOutputPath checks that the parent directory of path exists and,
// when exts is non-empty, that path carries one of the extensions.
func ValidateOutputPath(path string, exts ...string) error {
	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return err
	}

	if len(exts) > 0 {
		ext := strings.ToLower(filepath.Ext(cleanPath))
		ok := false
		for _, e := range exts {
			if ext == e {
				ok = true
				break
			}
		}
		if !ok {
			return perrors.New(perrors.CodeInvalidFormat, "unexpected output extension").
				WithContext("path", path).
				WithContext("want", strings.Join(exts, ", "))
		}
	}

	dir := filepath.Dir(cleanPath)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return perrors.New(perrors.CodeFileNotFound, "output directory does not exist").
			WithContext("directory", dir)
	}
	if err != nil {
		return perrors.Wrap(err, perrors.CodeFileNotFound, "cannot access output directory")
	}
	if !info.IsDir() {
		return perrors.New(perrors.CodeInvalidFormat, "parent path is not a directory")
	}
	return nil
}

// ValidateCompression validates a Parquet compression name.
func ValidateCompression(compression string) error {
	switch strings.ToLower(compression) {
	case "none", "uncompressed", "snappy", "gzip", "zstd", "lz4":
		return nil
	}
	return perrors.New(perrors.CodeInvalidFormat, "unsupported compression").
		WithContext("compression", compression).
		WithContext("supported", "none, snappy, gzip, zstd, lz4")
}

// PlanPaths are the files one plan run reads and writes. Empty outputs are
// skipped.
type PlanPaths struct {
	Orders   string
	Machines string
	XLSX     string
	Parquet  string
	DuckDB   string
}

// ValidatePlan checks every path of a run and reports all problems at once.
func ValidatePlan(p PlanPaths) error {
	var errs perrors.MultiError

	errs.Add(ValidateInputFile(p.Orders))
	if p.Machines == "" {
		errs.Add(perrors.InvalidConfig("machines.file", "no machine workbook: pass --machines or set machines.file"))
	} else {
		errs.Add(ValidateInputFile(p.Machines))
	}

	if p.XLSX != "" {
		errs.Add(ValidateOutputPath(p.XLSX, ".xlsx"))
	}
	if p.Parquet != "" {
		errs.Add(ValidateOutputPath(p.Parquet, ".parquet"))
	}
	if p.DuckDB != "" {
		errs.Add(ValidateOutputPath(p.DuckDB))
	}

	return errs.Combined()
}
