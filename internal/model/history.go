package model

import "time"

// SellerHistoryRecord is the per-event state of a seller's order history.
// All counters are computed before including the event itself, so the rate
// attached to an order never sees that order's own outcome.
type SellerHistoryRecord struct {
	SellerID    string
	OrderID     string
	EventTS     *time.Time
	PriorOrders int
	PriorLate   int
	LateRate    float64
}

// SellerReviewRecord is the per-review state of a seller's review history,
// anchored on the review creation time. Like SellerHistoryRecord, the
// running mean and bad-review rate exclude the current review.
type SellerReviewRecord struct {
	SellerID     string
	EventTS      time.Time
	PriorReviews int
	PriorSum     float64
	PriorBad     int
	AvgScore     float64
	BadRate      float64
}
