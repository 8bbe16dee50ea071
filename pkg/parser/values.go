package parser

import (
	"strconv"
	"strings"
	"time"
)

// NormalizeCount extracts the integer Ne count from text such as "20",
// "20/1", "20 Ne" or "20.0".
func NormalizeCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	part := s
	if i := strings.Index(s, "/"); i >= 0 {
		part = s[:i]
	} else if fields := strings.Fields(s); len(fields) > 0 {
		part = fields[0]
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// parseNumber parses a quantity, tolerating thousands separators. Blank
// or unparseable values yield 0.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// parseDate parses a calendar date from an Excel serial number or one of
// the common text layouts. The time of day is dropped.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}

	// Excel serial date: days since 1899-12-30
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 1 {
			return time.Time{}, ErrInvalidDate
		}
		t := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(serial))
		return t, nil
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
