package model

import "time"

// MultiSellerState is the sentinel seller state for orders whose items do
// not come from exactly one seller; a single state is not representative
// there.
const MultiSellerState = "MULTI"

// OrderFeatureRow is one row of the final dataset, one per delivered order.
// Pointer fields are nullable and serialize to empty cells; the historical
// rate features are plain float64 because "no history" is defined as 0.0,
// not null.
type OrderFeatureRow struct {
	OrderID             string
	PurchaseTS          *time.Time
	Weekday             *int
	Month               *int
	SLADays             *float64
	ApprovalDelayDays   *float64
	NItems              int
	NSellers            int
	TotalPrice          float64
	TotalFreight        float64
	AvgShipGapDays      *float64
	CustomerState       string
	SellerState         string
	SameState           int
	GeoDistanceKM       *float64
	AvgProductWeightG   *float64
	AvgProductVolumeCM3 *float64
	ProductCategoryMode string
	SellerDelayRateHist float64
	AvgReviewScoreHist  float64
	BadReviewRateHist   float64
	IsWeekendPurchase   int
	IsHolidayPeriod     int
	LateDelivery        int
}

// FeatureColumns is the exact output column order of the dataset.
var FeatureColumns = []string{
	"order_id",
	"order_purchase_timestamp",
	"order_weekday",
	"order_month",
	"SLA_days",
	"approval_delay_days",
	"n_items",
	"n_sellers",
	"total_price",
	"total_freight",
	"avg_shipping_limit_gap_days",
	"customer_state",
	"seller_state",
	"same_state",
	"geo_distance_km",
	"avg_product_weight_g",
	"avg_product_volume_cm3",
	"product_category_mode",
	"seller_delay_rate_hist",
	"avg_review_score_hist",
	"bad_review_rate_hist",
	"is_weekend_purchase",
	"is_holiday_period",
	"late_delivery",
}
