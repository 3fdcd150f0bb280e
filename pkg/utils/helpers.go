package utils

import (
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the accepted raw timestamp formats, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	time.RFC3339,
}

// ParseTime parses a raw timestamp string, trying each accepted layout.
// Empty or unparsable values return nil rather than an error; a bad cell
// becomes a null field, never a fabricated time.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseFloat parses a raw numeric string, returning nil for empty or
// malformed values.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseInt parses a raw integer string, returning nil for empty or
// malformed values. Values written as floats ("4.0") are accepted.
func ParseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return &i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		i := int(f)
		return &i
	}
	return nil
}

// FloatOrZero unwraps a nullable float, mapping nil to 0.
func FloatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// DaysBetween returns the signed difference to minus from in fractional
// days, or nil when either side is null.
func DaysBetween(from, to *time.Time) *float64 {
	if from == nil || to == nil {
		return nil
	}
	d := to.Sub(*from).Seconds() / 86400.0
	return &d
}
