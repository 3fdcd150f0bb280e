package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"otif-pipeline/internal/config"
	"otif-pipeline/internal/model"
	"otif-pipeline/pkg/utils"
)

// Tables holds the seven typed input tables for one run. They are read-only
// after loading; every later stage derives new values instead of mutating
// these.
type Tables struct {
	Orders    []model.Order
	Items     []model.OrderItem
	Customers []model.Customer
	Sellers   []model.Seller
	Geo       []model.GeoSample
	Products  []model.Product
	Reviews   []model.Review
}

// Required column sets per table. A table missing any of these fails the
// whole run before any output is produced.
var (
	orderColumns = []string{
		"order_id", "customer_id", "order_status",
		"order_purchase_timestamp", "order_approved_at",
		"order_delivered_carrier_date", "order_delivered_customer_date",
		"order_estimated_delivery_date",
	}
	itemColumns = []string{
		"order_id", "order_item_id", "seller_id", "product_id",
		"price", "freight_value", "shipping_limit_date",
	}
	customerColumns = []string{
		"customer_id", "customer_unique_id", "customer_zip_code_prefix",
		"customer_city", "customer_state",
	}
	sellerColumns = []string{
		"seller_id", "seller_zip_code_prefix", "seller_city", "seller_state",
	}
	geoColumns = []string{
		"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng",
	}
	productColumns = []string{
		"product_id", "product_weight_g", "product_length_cm",
		"product_height_cm", "product_width_cm", "product_category_name",
	}
	reviewColumns = []string{
		"order_id", "review_creation_date", "review_answer_timestamp",
		"review_score",
	}
)

// LoadTables reads all input tables in parallel and fails fast on the first
// schema error.
func LoadTables(ctx context.Context, cfg config.Config) (*Tables, error) {
	tables := &Tables{}

	loaders := []struct {
		file string
		load func(*rawTable)
		cols []string
	}{
		{cfg.Files.Orders, func(t *rawTable) { tables.Orders = buildOrders(t) }, orderColumns},
		{cfg.Files.OrderItems, func(t *rawTable) { tables.Items = buildItems(t) }, itemColumns},
		{cfg.Files.Customers, func(t *rawTable) { tables.Customers = buildCustomers(t) }, customerColumns},
		{cfg.Files.Sellers, func(t *rawTable) { tables.Sellers = buildSellers(t) }, sellerColumns},
		{cfg.Files.Geolocation, func(t *rawTable) { tables.Geo = buildGeoSamples(t) }, geoColumns},
		{cfg.Files.Products, func(t *rawTable) { tables.Products = buildProducts(t) }, productColumns},
		{cfg.Files.Reviews, func(t *rawTable) { tables.Reviews = buildReviews(t) }, reviewColumns},
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(loaders))
	for _, l := range loaders {
		wg.Add(1)
		go func(file string, cols []string, load func(*rawTable)) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}
			raw, err := readTable(cfg.TablePath(file), cols)
			if err != nil {
				errCh <- err
				return
			}
			load(raw)
		}(l.file, l.cols, l.load)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// rawTable is one parsed CSV file: cleaned header index plus raw string
// rows. Typed records are built from it per table.
type rawTable struct {
	name string
	cols map[string]int
	rows [][]string
}

// field returns the raw cell for a column, tolerating short rows.
func (t *rawTable) field(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func readTable(path string, required []string) (*rawTable, error) {
	name := tableName(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("table %s: open %s: %w", name, path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("table %s: read header: %w", name, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		// Clean header names: trim whitespace and strip stray quotes.
		clean := strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		cols[clean] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("table %s: missing required columns: %s",
			name, strings.Join(missing, ", "))
	}

	raw := &rawTable{name: name, cols: cols}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table %s: read row: %w", name, err)
		}
		raw.rows = append(raw.rows, row)
	}
	return raw, nil
}

func tableName(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".csv")
}

func buildOrders(t *rawTable) []model.Order {
	orders := make([]model.Order, 0, len(t.rows))
	for _, row := range t.rows {
		orders = append(orders, model.Order{
			OrderID:           strings.TrimSpace(t.field(row, "order_id")),
			CustomerID:        strings.TrimSpace(t.field(row, "customer_id")),
			Status:            strings.TrimSpace(t.field(row, "order_status")),
			PurchaseTS:        utils.ParseTime(t.field(row, "order_purchase_timestamp")),
			ApprovedAt:        utils.ParseTime(t.field(row, "order_approved_at")),
			DeliveredCarrier:  utils.ParseTime(t.field(row, "order_delivered_carrier_date")),
			DeliveredCustomer: utils.ParseTime(t.field(row, "order_delivered_customer_date")),
			EstimatedDelivery: utils.ParseTime(t.field(row, "order_estimated_delivery_date")),
		})
	}
	return orders
}

func buildItems(t *rawTable) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(t.rows))
	for _, row := range t.rows {
		seq := 0
		if v := utils.ParseInt(t.field(row, "order_item_id")); v != nil {
			seq = *v
		}
		items = append(items, model.OrderItem{
			OrderID:       strings.TrimSpace(t.field(row, "order_id")),
			ItemSeq:       seq,
			SellerID:      strings.TrimSpace(t.field(row, "seller_id")),
			ProductID:     strings.TrimSpace(t.field(row, "product_id")),
			Price:         utils.FloatOrZero(utils.ParseFloat(t.field(row, "price"))),
			Freight:       utils.FloatOrZero(utils.ParseFloat(t.field(row, "freight_value"))),
			ShippingLimit: utils.ParseTime(t.field(row, "shipping_limit_date")),
		})
	}
	return items
}

func buildCustomers(t *rawTable) []model.Customer {
	customers := make([]model.Customer, 0, len(t.rows))
	for _, row := range t.rows {
		customers = append(customers, model.Customer{
			CustomerID: strings.TrimSpace(t.field(row, "customer_id")),
			UniqueID:   strings.TrimSpace(t.field(row, "customer_unique_id")),
			ZipPrefix:  strings.TrimSpace(t.field(row, "customer_zip_code_prefix")),
			City:       strings.TrimSpace(t.field(row, "customer_city")),
			State:      strings.TrimSpace(t.field(row, "customer_state")),
		})
	}
	return customers
}

func buildSellers(t *rawTable) []model.Seller {
	sellers := make([]model.Seller, 0, len(t.rows))
	for _, row := range t.rows {
		sellers = append(sellers, model.Seller{
			SellerID:  strings.TrimSpace(t.field(row, "seller_id")),
			ZipPrefix: strings.TrimSpace(t.field(row, "seller_zip_code_prefix")),
			City:      strings.TrimSpace(t.field(row, "seller_city")),
			State:     strings.TrimSpace(t.field(row, "seller_state")),
		})
	}
	return sellers
}

func buildGeoSamples(t *rawTable) []model.GeoSample {
	samples := make([]model.GeoSample, 0, len(t.rows))
	for _, row := range t.rows {
		lat := utils.ParseFloat(t.field(row, "geolocation_lat"))
		lng := utils.ParseFloat(t.field(row, "geolocation_lng"))
		if lat == nil || lng == nil {
			continue
		}
		samples = append(samples, model.GeoSample{
			ZipPrefix: strings.TrimSpace(t.field(row, "geolocation_zip_code_prefix")),
			Lat:       *lat,
			Lng:       *lng,
		})
	}
	return samples
}

func buildProducts(t *rawTable) []model.Product {
	products := make([]model.Product, 0, len(t.rows))
	for _, row := range t.rows {
		products = append(products, model.Product{
			ProductID: strings.TrimSpace(t.field(row, "product_id")),
			WeightG:   utils.ParseFloat(t.field(row, "product_weight_g")),
			LengthCM:  utils.ParseFloat(t.field(row, "product_length_cm")),
			HeightCM:  utils.ParseFloat(t.field(row, "product_height_cm")),
			WidthCM:   utils.ParseFloat(t.field(row, "product_width_cm")),
			Category:  strings.TrimSpace(t.field(row, "product_category_name")),
		})
	}
	return products
}

func buildReviews(t *rawTable) []model.Review {
	reviews := make([]model.Review, 0, len(t.rows))
	for _, row := range t.rows {
		reviews = append(reviews, model.Review{
			OrderID:    strings.TrimSpace(t.field(row, "order_id")),
			Score:      utils.ParseInt(t.field(row, "review_score")),
			CreatedAt:  utils.ParseTime(t.field(row, "review_creation_date")),
			AnsweredAt: utils.ParseTime(t.field(row, "review_answer_timestamp")),
		})
	}
	return reviews
}
