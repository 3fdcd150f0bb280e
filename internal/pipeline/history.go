package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"otif-pipeline/internal/model"
)

// sellerEvent is one order event inside a seller's partition. Events keep
// their original pair order so the stable time sort breaks ties
// deterministically.
type sellerEvent struct {
	orderID string
	ts      *time.Time
	late    int
}

// SellerDelayRates computes, per order, the historical late-delivery rate
// of the order's sellers at that order's position in each seller's
// time-ordered sequence. The counters behind each rate cover only the
// seller's earlier orders, never the order itself, so the feature can never
// leak its own outcome. Orders with several sellers get the plain mean of
// the per-seller rates.
//
// Partitions are independent, so they are processed by a small worker pool;
// each worker owns whole sellers and the merged result does not depend on
// scheduling.
func SellerDelayRates(ctx context.Context, pairs []OrderSeller, orders map[string]model.Order, workers int) map[string]float64 {
	partitions, sellerIDs := sellerPartitions(pairs, orders)

	var (
		mu     sync.Mutex
		sums   = make(map[string]float64)
		counts = make(map[string]int)
		wg     sync.WaitGroup
		jobs   = make(chan string)
	)

	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sellerID := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				records := sellerHistory(sellerID, partitions[sellerID])
				mu.Lock()
				for _, rec := range records {
					sums[rec.OrderID] += rec.LateRate
					counts[rec.OrderID]++
				}
				mu.Unlock()
			}
		}()
	}
	for _, sellerID := range sellerIDs {
		jobs <- sellerID
	}
	close(jobs)
	wg.Wait()

	rates := make(map[string]float64, len(sums))
	for orderID, sum := range sums {
		rates[orderID] = sum / float64(counts[orderID])
	}
	return rates
}

// sellerPartitions groups delivered-order events by seller, preserving the
// original pair order inside each partition. Only delivered orders carry a
// late flag, so only they become events.
func sellerPartitions(pairs []OrderSeller, orders map[string]model.Order) (map[string][]sellerEvent, []string) {
	partitions := make(map[string][]sellerEvent)
	var sellerIDs []string

	for _, pair := range pairs {
		order, ok := orders[pair.OrderID]
		if !ok || !order.Delivered() {
			continue
		}
		late := 0
		if isLate(order) {
			late = 1
		}
		if _, seen := partitions[pair.SellerID]; !seen {
			sellerIDs = append(sellerIDs, pair.SellerID)
		}
		partitions[pair.SellerID] = append(partitions[pair.SellerID], sellerEvent{
			orderID: pair.OrderID,
			ts:      order.PurchaseTS,
			late:    late,
		})
	}
	return partitions, sellerIDs
}

// sellerHistory folds one seller's events in time order into shifted
// history records: the i-th event sees i prior orders and the late flags of
// events 0..i-1 only. A seller's first order has no history and gets rate
// 0.0, deliberately not null.
func sellerHistory(sellerID string, events []sellerEvent) []model.SellerHistoryRecord {
	sorted := make([]sellerEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return tsLess(sorted[i].ts, sorted[j].ts)
	})

	records := make([]model.SellerHistoryRecord, 0, len(sorted))
	lateSum := 0
	for i, ev := range sorted {
		rate := 0.0
		if i > 0 {
			rate = float64(lateSum) / float64(i)
		}
		records = append(records, model.SellerHistoryRecord{
			SellerID:    sellerID,
			OrderID:     ev.orderID,
			EventTS:     ev.ts,
			PriorOrders: i,
			PriorLate:   lateSum,
			LateRate:    rate,
		})
		lateSum += ev.late
	}
	return records
}

// isLate reports whether delivery missed the estimate. Missing timestamps
// compare false, matching the label definition.
func isLate(o model.Order) bool {
	if o.DeliveredCustomer == nil || o.EstimatedDelivery == nil {
		return false
	}
	return o.DeliveredCustomer.After(*o.EstimatedDelivery)
}

// tsLess orders nullable timestamps ascending with nulls last.
func tsLess(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}
