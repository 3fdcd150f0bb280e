package pipeline

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) *time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		ts, err = time.Parse("2006-01-02", s)
	}
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return &ts
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
