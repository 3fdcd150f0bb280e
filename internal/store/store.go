package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"otif-pipeline/internal/model"
)

// Store is the SQLite-backed run tracking database. It records run status
// transitions, per-stage progress and run errors, and doubles as the
// optional sqlite export target for the finished dataset.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the tracking database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open tracking db: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			config TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			status TEXT,
			started_at DATETIME,
			ended_at DATETIME,
			records INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS feature_rows (
			run_id TEXT,
			order_id TEXT,
			order_purchase_timestamp DATETIME,
			order_weekday INTEGER,
			order_month INTEGER,
			sla_days REAL,
			approval_delay_days REAL,
			n_items INTEGER,
			n_sellers INTEGER,
			total_price REAL,
			total_freight REAL,
			avg_shipping_limit_gap_days REAL,
			customer_state TEXT,
			seller_state TEXT,
			same_state INTEGER,
			geo_distance_km REAL,
			avg_product_weight_g REAL,
			avg_product_volume_cm3 REAL,
			product_category_mode TEXT,
			seller_delay_rate_hist REAL,
			avg_review_score_hist REAL,
			bad_review_rate_hist REAL,
			is_weekend_purchase INTEGER,
			is_holiday_period INTEGER,
			late_delivery INTEGER
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init tracking db: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun registers a new pipeline run with its configuration.
func (s *Store) SaveRun(runID string, cfg interface{}) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO runs (id, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(cfgJSON), "pending", now, now)
	return err
}

// UpdateRunStatus updates the current status of a run.
func (s *Store) UpdateRunStatus(runID, status string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, runID)
	return err
}

// SaveRunError records a run-level error.
func (s *Store) SaveRunError(runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), now)
	return err
}

// SaveStageProgress records the lifecycle of one pipeline stage.
func (s *Store) SaveStageProgress(runID, stage, status string, started, ended *time.Time, records int) error {
	_, err := s.db.Exec(
		`INSERT INTO stage_progress (run_id, stage, status, started_at, ended_at, records) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, status, toNullTime(started), toNullTime(ended), records)
	return err
}

// ListRuns returns id, status and timestamps of recorded runs, newest
// first.
func (s *Store) ListRuns() ([]map[string]interface{}, error) {
	rows, err := s.db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// SaveFeatureRows inserts the finished dataset for the sqlite export
// target, replacing any rows from earlier runs with the same id.
func (s *Store) SaveFeatureRows(runID string, featureRows []model.OrderFeatureRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM feature_rows WHERE run_id = ?`, runID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO feature_rows VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range featureRows {
		_, err := stmt.Exec(
			runID,
			r.OrderID,
			toNullTime(r.PurchaseTS),
			toNullInt(r.Weekday),
			toNullInt(r.Month),
			toNullFloat(r.SLADays),
			toNullFloat(r.ApprovalDelayDays),
			r.NItems,
			r.NSellers,
			r.TotalPrice,
			r.TotalFreight,
			toNullFloat(r.AvgShipGapDays),
			r.CustomerState,
			r.SellerState,
			r.SameState,
			toNullFloat(r.GeoDistanceKM),
			toNullFloat(r.AvgProductWeightG),
			toNullFloat(r.AvgProductVolumeCM3),
			r.ProductCategoryMode,
			r.SellerDelayRateHist,
			r.AvgReviewScoreHist,
			r.BadReviewRateHist,
			r.IsWeekendPurchase,
			r.IsHolidayPeriod,
			r.LateDelivery,
		)
		if err != nil {
			return fmt.Errorf("insert feature row %s: %w", r.OrderID, err)
		}
	}
	return tx.Commit()
}

func toNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func toNullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func toNullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
