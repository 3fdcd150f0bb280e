package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"otif-pipeline/internal/config"
	"otif-pipeline/internal/store"
)

func writeFixtureTables(t *testing.T, dir string) config.Config {
	t.Helper()
	writeFile(t, dir, "orders.csv",
		"order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date\n"+
			"o1,c1,delivered,2018-01-01 10:00:00,2018-01-01 11:00:00,2018-01-02 10:00:00,2018-01-20 12:00:00,2018-01-10 00:00:00\n"+
			"o2,c2,delivered,2018-02-01 10:00:00,2018-02-01 11:00:00,2018-02-02 10:00:00,2018-02-08 12:00:00,2018-02-12 00:00:00\n"+
			"o3,c1,shipped,2018-03-01 10:00:00,2018-03-01 11:00:00,,,2018-03-12 00:00:00\n")
	writeFile(t, dir, "items.csv",
		"order_id,order_item_id,seller_id,product_id,price,freight_value,shipping_limit_date\n"+
			"o1,1,s1,p1,49.9,7.1,2018-01-03 00:00:00\n"+
			"o2,1,s1,p1,20,3,2018-02-03 00:00:00\n"+
			"o3,1,s1,p1,10,2,2018-03-03 00:00:00\n")
	writeFile(t, dir, "customers.csv",
		"customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\n"+
			"c1,u1,01310,sao paulo,SP\nc2,u2,22041,rio de janeiro,RJ\n")
	writeFile(t, dir, "sellers.csv",
		"seller_id,seller_zip_code_prefix,seller_city,seller_state\ns1,01310,sao paulo,SP\n")
	writeFile(t, dir, "geo.csv",
		"geolocation_zip_code_prefix,geolocation_lat,geolocation_lng\n"+
			"01310,-23.56,-46.65\n01310,-23.58,-46.67\n22041,-22.98,-43.19\n")
	writeFile(t, dir, "products.csv",
		"product_id,product_weight_g,product_length_cm,product_height_cm,product_width_cm,product_category_name\n"+
			"p1,100,10,4,5,toys\n")
	writeFile(t, dir, "reviews.csv",
		"order_id,review_creation_date,review_answer_timestamp,review_score\n"+
			"o1,2018-01-25 00:00:00,2018-01-26 00:00:00,1\n")

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Files = config.TableFiles{
		Orders: "orders.csv", OrderItems: "items.csv", Customers: "customers.csv",
		Sellers: "sellers.csv", Geolocation: "geo.csv", Products: "products.csv",
		Reviews: "reviews.csv",
	}
	cfg.Output.CSV = filepath.Join(dir, "out", "dataset.csv")
	cfg.TrackingDB = filepath.Join(dir, "pipeline.db")
	cfg.Workers = 2
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixtureTables(t, dir)

	st, err := store.Open(cfg.TrackingDB)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if err := Run(context.Background(), "run-e2e", cfg, st); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(cfg.Output.CSV)
	if err != nil {
		t.Fatalf("dataset missing: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	// o3 is not delivered: header plus the two delivered orders only.
	if len(lines) != 3 {
		t.Fatalf("want 2 data rows, got %d: %q", len(lines)-1, lines)
	}
	if !strings.HasPrefix(lines[1], "o1,") || !strings.HasPrefix(lines[2], "o2,") {
		t.Fatalf("rows must keep orders-table order: %q", lines[1:])
	}

	// o1 was late, o2 on time; o2 is s1's second order, so its historical
	// rate sees exactly o1.
	o1 := strings.Split(lines[1], ",")
	o2 := strings.Split(lines[2], ",")
	if o1[23] != "1" || o2[23] != "0" {
		t.Fatalf("labels wrong: o1=%s o2=%s", o1[23], o2[23])
	}
	if o1[18] != "0" || o2[18] != "1" {
		t.Fatalf("historical delay rates wrong: o1=%s o2=%s", o1[18], o2[18])
	}
	// o1's review predates o2's purchase, so o2 matches that record, but
	// the shifted accumulator there excludes the review itself: 0.0.
	if o2[19] != "0" {
		t.Fatalf("o2 avg review hist = %s, want 0", o2[19])
	}
}

func TestRun_ByteIdenticalReruns(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixtureTables(t, dir)

	st, err := store.Open(cfg.TrackingDB)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if err := Run(context.Background(), "run-a", cfg, st); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(cfg.Output.CSV)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	if err := Run(context.Background(), "run-b", cfg, st); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := os.ReadFile(cfg.Output.CSV)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("identical inputs must produce byte-identical output")
	}
}

func TestRun_SchemaErrorAbortsBeforeOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixtureTables(t, dir)
	// Break the orders table schema.
	writeFile(t, dir, "orders.csv", "order_id,order_status\no1,delivered\n")

	st, err := store.Open(cfg.TrackingDB)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	err = Run(context.Background(), "run-bad", cfg, st)
	if err == nil {
		t.Fatalf("schema error must fail the run")
	}
	if !strings.Contains(err.Error(), "missing required columns") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(cfg.Output.CSV); !os.IsNotExist(statErr) {
		t.Fatalf("no output may exist after a schema failure")
	}
}
