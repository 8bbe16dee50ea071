package parser

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input format is not supported.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrNoSheets is returned when a workbook has no worksheets.
	ErrNoSheets = errors.New("parser: no sheets found")

	// ErrNoTable is returned when no sheet carries enough required columns.
	ErrNoTable = errors.New("parser: could not detect a valid data table with required columns")

	// ErrInvalidDate is returned when date parsing fails.
	ErrInvalidDate = errors.New("parser: invalid date format")

	// ErrContextCanceled is returned when the context is canceled.
	ErrContextCanceled = errors.New("parser: context canceled")
)
