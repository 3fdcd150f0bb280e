package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"otif-pipeline/internal/model"
)

func sampleRows(t *testing.T) []model.OrderFeatureRow {
	t.Helper()
	return []model.OrderFeatureRow{
		{
			OrderID:             "o1",
			PurchaseTS:          mustTime(t, "2017-12-02 10:00:00"),
			Weekday:             iptr(5),
			Month:               iptr(12),
			SLADays:             fptr(12.5),
			ApprovalDelayDays:   fptr(0.25),
			NItems:              2,
			NSellers:            1,
			TotalPrice:          99.8,
			TotalFreight:        12.4,
			AvgShipGapDays:      fptr(3),
			CustomerState:       "SP",
			SellerState:         "SP",
			SameState:           1,
			GeoDistanceKM:       fptr(361.2),
			AvgProductWeightG:   fptr(150),
			AvgProductVolumeCM3: fptr(200),
			ProductCategoryMode: "toys",
			SellerDelayRateHist: 1.0 / 3.0,
			AvgReviewScoreHist:  4.5,
			IsWeekendPurchase:   1,
			IsHolidayPeriod:     1,
			LateDelivery:        1,
		},
		{
			// Order with no items, no geo and a null purchase timestamp:
			// nullable columns serialize as empty cells, the row survives.
			OrderID:     "o2",
			SellerState: model.MultiSellerState,
		},
	}
}

func TestWriteCSV_ColumnOrderAndNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	n, err := WriteCSV(path, sampleRows(t))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 records written, got %d", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(model.FeatureColumns, ",") {
		t.Fatalf("header mismatch:\n%s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "o1,2017-12-02 10:00:00,5,12,12.5,0.25,2,1,99.8,12.4,3,SP,SP,1,") {
		t.Fatalf("row 1 = %s", lines[1])
	}
	// o2: every nullable column is an empty cell, guarded rates are 0.
	if lines[2] != "o2,,,,,,0,0,0,0,,,MULTI,0,,,,,0,0,0,0,0,0" {
		t.Fatalf("row 2 = %s", lines[2])
	}
}

func TestWriteCSV_ByteIdenticalAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	rows := sampleRows(t)

	p1 := filepath.Join(dir, "a.csv")
	p2 := filepath.Join(dir, "b.csv")
	if _, err := WriteCSV(p1, rows); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := WriteCSV(p2, rows); err != nil {
		t.Fatalf("second write: %v", err)
	}

	a, _ := os.ReadFile(p1)
	b, _ := os.ReadFile(p2)
	if !bytes.Equal(a, b) {
		t.Fatalf("reruns over identical rows must be byte-identical")
	}
}

func TestFormatRow_FixedFloatRendering(t *testing.T) {
	row := model.OrderFeatureRow{OrderID: "o1", SellerDelayRateHist: 1.0 / 3.0}
	cells := formatRow(row)
	if len(cells) != len(model.FeatureColumns) {
		t.Fatalf("cell count %d != column count %d", len(cells), len(model.FeatureColumns))
	}
	if cells[18] != "0.3333333333333333" {
		t.Fatalf("delay rate cell = %q", cells[18])
	}
}
