package pipeline

import (
	"time"

	"otif-pipeline/internal/model"
	"otif-pipeline/pkg/utils"
)

// OrderItemAgg is the per-order roll-up of line items with their seller and
// product attributes joined in. Nullable means stay nil when no item in the
// group carried a value.
type OrderItemAgg struct {
	OrderID         string
	NItems          int
	NSellers        int
	TotalPrice      float64
	TotalFreight    float64
	AvgWeightG      *float64
	AvgLengthCM     *float64
	AvgHeightCM     *float64
	AvgWidthCM      *float64
	CategoryMode    string
	SellerStateMode string
	SellerLat       *float64
	SellerLng       *float64
	AvgShipGapDays  *float64
}

// OrderSeller is one distinct order-seller pair, in first-encountered item
// order. An order with items from k sellers contributes k pairs.
type OrderSeller struct {
	OrderID  string
	SellerID string
}

// meanAcc accumulates a nullable mean: null inputs are skipped, an
// all-null group yields a null mean.
type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *meanAcc) addValue(v float64) {
	m.sum += v
	m.n++
}

func (m *meanAcc) mean() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

type itemGroup struct {
	agg      OrderItemAgg
	sellers  map[string]bool
	weight   meanAcc
	length   meanAcc
	height   meanAcc
	width    meanAcc
	lat      meanAcc
	lng      meanAcc
	shipGap  meanAcc
	category []string
	state    []string
}

// AggregateItems fans each line item out to its seller and product
// attributes and folds the result back to one aggregate per order. Items
// are processed in table order, which fixes the mode tie-break and the
// order-seller pair ordering, keeping reruns deterministic.
func AggregateItems(
	items []model.OrderItem,
	sellers map[string]model.Seller,
	geo map[string]model.GeoPoint,
	products map[string]model.Product,
	purchaseTS map[string]*time.Time,
) (map[string]*OrderItemAgg, []OrderSeller) {
	groups := make(map[string]*itemGroup)
	var pairs []OrderSeller

	for _, item := range items {
		g, ok := groups[item.OrderID]
		if !ok {
			g = &itemGroup{
				agg:     OrderItemAgg{OrderID: item.OrderID},
				sellers: make(map[string]bool),
			}
			groups[item.OrderID] = g
		}

		g.agg.NItems++
		g.agg.TotalPrice += item.Price
		g.agg.TotalFreight += item.Freight

		if !g.sellers[item.SellerID] {
			g.sellers[item.SellerID] = true
			pairs = append(pairs, OrderSeller{OrderID: item.OrderID, SellerID: item.SellerID})
		}

		if seller, ok := sellers[item.SellerID]; ok {
			if seller.State != "" {
				g.state = append(g.state, seller.State)
			}
			if point, ok := geo[seller.ZipPrefix]; ok {
				g.lat.addValue(point.Lat)
				g.lng.addValue(point.Lng)
			}
		}

		if product, ok := products[item.ProductID]; ok {
			g.weight.add(product.WeightG)
			g.length.add(product.LengthCM)
			g.height.add(product.HeightCM)
			g.width.add(product.WidthCM)
			if product.Category != "" {
				g.category = append(g.category, product.Category)
			}
		}

		g.shipGap.add(utils.DaysBetween(purchaseTS[item.OrderID], item.ShippingLimit))
	}

	aggs := make(map[string]*OrderItemAgg, len(groups))
	for orderID, g := range groups {
		g.agg.NSellers = len(g.sellers)
		g.agg.AvgWeightG = g.weight.mean()
		g.agg.AvgLengthCM = g.length.mean()
		g.agg.AvgHeightCM = g.height.mean()
		g.agg.AvgWidthCM = g.width.mean()
		g.agg.SellerLat = g.lat.mean()
		g.agg.SellerLng = g.lng.mean()
		g.agg.AvgShipGapDays = g.shipGap.mean()
		g.agg.CategoryMode = modeOf(g.category)
		g.agg.SellerStateMode = modeOf(g.state)
		aggs[orderID] = &g.agg
	}
	return aggs, pairs
}

// modeOf returns the most frequent value, breaking ties by whichever value
// was encountered first; an empty group has no mode.
func modeOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	type stat struct {
		count int
		first int
	}
	counts := make(map[string]*stat, len(values))
	for i, v := range values {
		s, ok := counts[v]
		if !ok {
			s = &stat{first: i}
			counts[v] = s
		}
		s.count++
	}
	best := ""
	bestCount, bestFirst := 0, len(values)
	for v, s := range counts {
		if s.count > bestCount || (s.count == bestCount && s.first < bestFirst) {
			best = v
			bestCount = s.count
			bestFirst = s.first
		}
	}
	return best
}

// IndexSellers builds a seller_id lookup.
func IndexSellers(sellers []model.Seller) map[string]model.Seller {
	byID := make(map[string]model.Seller, len(sellers))
	for _, s := range sellers {
		byID[s.SellerID] = s
	}
	return byID
}

// IndexProducts builds a product_id lookup.
func IndexProducts(products []model.Product) map[string]model.Product {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}
	return byID
}

// IndexCustomers builds a customer_id lookup.
func IndexCustomers(customers []model.Customer) map[string]model.Customer {
	byID := make(map[string]model.Customer, len(customers))
	for _, c := range customers {
		byID[c.CustomerID] = c
	}
	return byID
}

// PurchaseIndex maps order id to purchase timestamp.
func PurchaseIndex(orders []model.Order) map[string]*time.Time {
	byID := make(map[string]*time.Time, len(orders))
	for _, o := range orders {
		byID[o.OrderID] = o.PurchaseTS
	}
	return byID
}
