package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"otif-pipeline/internal/config"
	"otif-pipeline/internal/model"
	"otif-pipeline/internal/store"
)

// ExportResult describes one export operation.
type ExportResult struct {
	Type        string
	Path        string
	RecordCount int
	Success     bool
	Error       string
	ExportedAt  time.Time
}

// ExportDataset writes the assembled rows to every configured target. The
// CSV file is the primary output and always written; xlsx and sqlite are
// additional targets.
func ExportDataset(rows []model.OrderFeatureRow, cfg config.Config, st *store.Store, runID string) []ExportResult {
	var results []ExportResult

	n, err := WriteCSV(cfg.Output.CSV, rows)
	results = append(results, exportResult("csv", cfg.Output.CSV, n, err))

	if cfg.Output.XLSX != "" {
		n, err := WriteXLSX(cfg.Output.XLSX, rows)
		results = append(results, exportResult("xlsx", cfg.Output.XLSX, n, err))
	}

	if cfg.Output.SQLite {
		err := st.SaveFeatureRows(runID, rows)
		n := len(rows)
		if err != nil {
			n = 0
		}
		results = append(results, exportResult("sqlite", "feature_rows", n, err))
	}

	return results
}

func exportResult(typ, path string, n int, err error) ExportResult {
	res := ExportResult{
		Type:        typ,
		Path:        path,
		RecordCount: n,
		Success:     err == nil,
		ExportedAt:  time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// WriteCSV serializes the dataset with a fixed column order and fixed value
// formatting: one logical record per delivered order, UTF-8, no index
// column, nulls as empty cells. Identical inputs produce byte-identical
// files.
func WriteCSV(path string, rows []model.OrderFeatureRow) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(model.FeatureColumns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(formatRow(row)); err != nil {
			return i, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}
	return len(rows), nil
}

// WriteXLSX writes the same table to a spreadsheet for consumers that want
// the dataset in Excel.
func WriteXLSX(path string, rows []model.OrderFeatureRow) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	for i, name := range model.FeatureColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, name)
	}
	for rowIdx, row := range rows {
		for colIdx, val := range formatRow(row) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, val)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("save xlsx: %w", err)
	}
	return len(rows), nil
}

// formatRow renders one feature row in output column order.
func formatRow(r model.OrderFeatureRow) []string {
	return []string{
		r.OrderID,
		fmtTime(r.PurchaseTS),
		fmtIntPtr(r.Weekday),
		fmtIntPtr(r.Month),
		fmtFloatPtr(r.SLADays),
		fmtFloatPtr(r.ApprovalDelayDays),
		strconv.Itoa(r.NItems),
		strconv.Itoa(r.NSellers),
		fmtFloat(r.TotalPrice),
		fmtFloat(r.TotalFreight),
		fmtFloatPtr(r.AvgShipGapDays),
		r.CustomerState,
		r.SellerState,
		strconv.Itoa(r.SameState),
		fmtFloatPtr(r.GeoDistanceKM),
		fmtFloatPtr(r.AvgProductWeightG),
		fmtFloatPtr(r.AvgProductVolumeCM3),
		r.ProductCategoryMode,
		fmtFloat(r.SellerDelayRateHist),
		fmtFloat(r.AvgReviewScoreHist),
		fmtFloat(r.BadReviewRateHist),
		strconv.Itoa(r.IsWeekendPurchase),
		strconv.Itoa(r.IsHolidayPeriod),
		strconv.Itoa(r.LateDelivery),
	}
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func fmtFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return fmtFloat(*f)
}

func fmtIntPtr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
