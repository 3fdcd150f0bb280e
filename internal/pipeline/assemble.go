package pipeline

import (
	"otif-pipeline/internal/model"
	"otif-pipeline/pkg/utils"
)

// AssembleRows merges order fields, item aggregates, geography and the two
// historical feature streams into the final row set. Only delivered orders
// are assembled; any other status lacks a reliable delivery timestamp for
// the label and is excluded entirely. Rows keep the orders-table order.
func AssembleRows(
	tables *Tables,
	geo map[string]model.GeoPoint,
	aggs map[string]*OrderItemAgg,
	delayRates map[string]float64,
	reviewFeats map[string]ReviewFeature,
) []model.OrderFeatureRow {
	customers := IndexCustomers(tables.Customers)

	var rows []model.OrderFeatureRow
	for _, order := range tables.Orders {
		if !order.Delivered() {
			continue
		}

		row := model.OrderFeatureRow{
			OrderID:    order.OrderID,
			PurchaseTS: order.PurchaseTS,
		}

		if order.PurchaseTS != nil {
			wd := (int(order.PurchaseTS.Weekday()) + 6) % 7 // Monday=0
			month := int(order.PurchaseTS.Month())
			row.Weekday = &wd
			row.Month = &month
			if wd >= 5 {
				row.IsWeekendPurchase = 1
			}
			if month == 12 {
				row.IsHolidayPeriod = 1
			}
		}
		row.SLADays = utils.DaysBetween(order.PurchaseTS, order.EstimatedDelivery)
		row.ApprovalDelayDays = utils.DaysBetween(order.PurchaseTS, order.ApprovedAt)

		var custLat, custLng *float64
		if cust, ok := customers[order.CustomerID]; ok {
			row.CustomerState = cust.State
			if point, ok := geo[cust.ZipPrefix]; ok {
				custLat, custLng = &point.Lat, &point.Lng
			}
		}

		if agg, ok := aggs[order.OrderID]; ok {
			row.NItems = agg.NItems
			row.NSellers = agg.NSellers
			row.TotalPrice = agg.TotalPrice
			row.TotalFreight = agg.TotalFreight
			row.AvgShipGapDays = agg.AvgShipGapDays
			row.AvgProductWeightG = agg.AvgWeightG
			row.AvgProductVolumeCM3 = productVolume(agg)
			row.ProductCategoryMode = agg.CategoryMode
			row.GeoDistanceKM = GeoDistance(custLat, custLng, agg.SellerLat, agg.SellerLng)
			if agg.NSellers == 1 {
				row.SellerState = agg.SellerStateMode
			} else {
				row.SellerState = model.MultiSellerState
			}
		} else {
			// Order with no line items at all.
			row.SellerState = model.MultiSellerState
		}

		if row.SellerState != "" && row.SellerState == row.CustomerState {
			row.SameState = 1
		}

		row.SellerDelayRateHist = delayRates[order.OrderID]
		if feat, ok := reviewFeats[order.OrderID]; ok {
			row.AvgReviewScoreHist = feat.AvgScore
			row.BadReviewRateHist = feat.BadRate
		}

		if isLate(order) {
			row.LateDelivery = 1
		}

		rows = append(rows, row)
	}
	return rows
}

// productVolume multiplies the three mean dimensions; null if any is null.
func productVolume(agg *OrderItemAgg) *float64 {
	if agg.AvgLengthCM == nil || agg.AvgHeightCM == nil || agg.AvgWidthCM == nil {
		return nil
	}
	v := *agg.AvgLengthCM * *agg.AvgHeightCM * *agg.AvgWidthCM
	return &v
}
