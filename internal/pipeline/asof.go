package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"otif-pipeline/internal/model"
)

// ReviewFeature is the pair of review-history features attached to one
// order: the mean review score and bad-review rate of its sellers as they
// stood at purchase time.
type ReviewFeature struct {
	AvgScore float64
	BadRate  float64
}

// reviewEvent is one scored review inside a seller's partition.
type reviewEvent struct {
	ts    time.Time
	score int
}

// ReviewHistoryFeatures computes review-derived historical features per
// delivered order. Reviews are grouped by the reviewed order's sellers and
// folded in creation-time order into shifted accumulators (the running mean
// and bad-review rate at each review exclude that review). Each order is
// then matched backward as-of its purchase time: the latest accumulator
// whose timestamp is at or before the purchase, never after it. No match,
// or a seller with no review history at all, contributes 0.0; multi-seller
// orders average their sellers' contributions.
func ReviewHistoryFeatures(
	ctx context.Context,
	pairs []OrderSeller,
	orders map[string]model.Order,
	reviews []model.Review,
	workers int,
) map[string]ReviewFeature {
	events := reviewPartitions(pairs, reviews)

	// Delivered orders per seller, in pair order.
	type orderAt struct {
		orderID string
		ts      *time.Time
	}
	ordersBySeller := make(map[string][]orderAt)
	var sellerIDs []string
	for _, pair := range pairs {
		order, ok := orders[pair.OrderID]
		if !ok || !order.Delivered() {
			continue
		}
		if _, seen := ordersBySeller[pair.SellerID]; !seen {
			sellerIDs = append(sellerIDs, pair.SellerID)
		}
		ordersBySeller[pair.SellerID] = append(ordersBySeller[pair.SellerID], orderAt{
			orderID: pair.OrderID,
			ts:      order.PurchaseTS,
		})
	}

	var (
		mu        sync.Mutex
		scoreSums = make(map[string]float64)
		badSums   = make(map[string]float64)
		counts    = make(map[string]int)
		wg        sync.WaitGroup
		jobs      = make(chan string)
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
				records := sellerReviewHistory(sellerID, events[sellerID])
				mu.Lock()
				for _, o := range ordersBySeller[sellerID] {
					rec := matchAsOf(records, o.ts)
					if rec != nil {
						scoreSums[o.orderID] += rec.AvgScore
						badSums[o.orderID] += rec.BadRate
					}
					counts[o.orderID]++
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

	features := make(map[string]ReviewFeature, len(counts))
	for orderID, n := range counts {
		features[orderID] = ReviewFeature{
			AvgScore: scoreSums[orderID] / float64(n),
			BadRate:  badSums[orderID] / float64(n),
		}
	}
	return features
}

// reviewPartitions assigns each scored review to the sellers of its order,
// preserving table order. Reviews without a parseable creation time or
// score cannot enter a time-ordered accumulator and are skipped.
func reviewPartitions(pairs []OrderSeller, reviews []model.Review) map[string][]reviewEvent {
	sellersByOrder := make(map[string][]string)
	for _, pair := range pairs {
		sellersByOrder[pair.OrderID] = append(sellersByOrder[pair.OrderID], pair.SellerID)
	}

	events := make(map[string][]reviewEvent)
	for _, rev := range reviews {
		if rev.CreatedAt == nil || rev.Score == nil {
			continue
		}
		for _, sellerID := range sellersByOrder[rev.OrderID] {
			events[sellerID] = append(events[sellerID], reviewEvent{
				ts:    *rev.CreatedAt,
				score: *rev.Score,
			})
		}
	}
	return events
}

// sellerReviewHistory folds one seller's reviews in creation-time order
// into shifted accumulators, ties keeping their original order.
func sellerReviewHistory(sellerID string, events []reviewEvent) []model.SellerReviewRecord {
	sorted := make([]reviewEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ts.Before(sorted[j].ts)
	})

	records := make([]model.SellerReviewRecord, 0, len(sorted))
	sum := 0.0
	bad := 0
	for i, ev := range sorted {
		avg, badRate := 0.0, 0.0
		if i > 0 {
			avg = sum / float64(i)
			badRate = float64(bad) / float64(i)
		}
		records = append(records, model.SellerReviewRecord{
			SellerID:     sellerID,
			EventTS:      ev.ts,
			PriorReviews: i,
			PriorSum:     sum,
			PriorBad:     bad,
			AvgScore:     avg,
			BadRate:      badRate,
		})
		sum += float64(ev.score)
		if ev.score <= 2 {
			bad++
		}
	}
	return records
}

// matchAsOf returns the latest record whose timestamp is at or before ts,
// or nil when ts is null or every record is later. A record after ts is
// never returned, however close by index.
func matchAsOf(records []model.SellerReviewRecord, ts *time.Time) *model.SellerReviewRecord {
	if ts == nil || len(records) == 0 {
		return nil
	}
	// First index with record timestamp strictly after ts.
	i := sort.Search(len(records), func(i int) bool {
		return records[i].EventTS.After(*ts)
	})
	if i == 0 {
		return nil
	}
	return &records[i-1]
}
