package model

import "time"

// Order is one row of the orders table. Timestamp fields are nil when the
// raw value was absent or failed to parse.
type Order struct {
	OrderID           string
	CustomerID        string
	Status            string
	PurchaseTS        *time.Time
	ApprovedAt        *time.Time
	DeliveredCarrier  *time.Time
	DeliveredCustomer *time.Time
	EstimatedDelivery *time.Time
}

// Delivered reports whether the order reached the customer. Only delivered
// orders carry a usable label.
func (o Order) Delivered() bool {
	return o.Status == "delivered"
}

// OrderItem is one line item of an order. An order can have many items and
// items from more than one seller.
type OrderItem struct {
	OrderID       string
	ItemSeq       int
	SellerID      string
	ProductID     string
	Price         float64
	Freight       float64
	ShippingLimit *time.Time
}

// Customer is one row of the customers table.
type Customer struct {
	CustomerID string
	UniqueID   string
	ZipPrefix  string
	City       string
	State      string
}

// Seller is one row of the sellers table.
type Seller struct {
	SellerID  string
	ZipPrefix string
	City      string
	State     string
}

// GeoSample is one raw geolocation reading. Many samples exist per zip
// prefix; GeoPoint is the per-prefix average.
type GeoSample struct {
	ZipPrefix string
	Lat       float64
	Lng       float64
}

// GeoPoint is the mean coordinate for a zip prefix.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Product is one row of the products table. Physical attributes are nil
// when missing from the source.
type Product struct {
	ProductID string
	WeightG   *float64
	LengthCM  *float64
	HeightCM  *float64
	WidthCM   *float64
	Category  string
}

// Review is one row of the reviews table. CreatedAt anchors the historical
// review features; AnsweredAt is carried but not used for matching.
type Review struct {
	OrderID    string
	Score      *int
	CreatedAt  *time.Time
	AnsweredAt *time.Time
}
