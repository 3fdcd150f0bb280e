package pipeline

import (
	"context"
	"fmt"
	"time"

	"otif-pipeline/internal/config"
	"otif-pipeline/internal/model"
	"otif-pipeline/internal/store"
)

// Run executes one whole-history build of the feature dataset: load the
// seven tables, resolve geography, roll up line items, compute the two
// historical feature streams, assemble rows for delivered orders and export
// them. Schema errors abort immediately before any output exists; parse
// level problems become nulls and flow through.
func Run(ctx context.Context, runID string, cfg config.Config, st *store.Store) (err error) {
	start := time.Now()
	fmt.Printf("🚀 Starting pipeline run %s\n", runID)

	if err := st.SaveRun(runID, cfg); err != nil {
		return fmt.Errorf("register run: %w", err)
	}
	st.UpdateRunStatus(runID, "running")

	defer func() {
		if err != nil {
			st.UpdateRunStatus(runID, "failed")
			st.SaveRunError(runID, err)
		}
	}()

	// --- LOAD ---
	loadStart := time.Now()
	st.UpdateRunStatus(runID, "loading")
	st.SaveStageProgress(runID, "load", "started", &loadStart, nil, 0)

	tables, err := LoadTables(ctx, cfg)
	if err != nil {
		return err
	}
	finishStage(st, runID, "load", loadStart, len(tables.Orders))
	fmt.Printf("📄 Loaded %d orders, %d items, %d reviews, %d geo samples\n",
		len(tables.Orders), len(tables.Items), len(tables.Reviews), len(tables.Geo))

	// --- DERIVE ---
	deriveStart := time.Now()
	st.UpdateRunStatus(runID, "deriving")
	st.SaveStageProgress(runID, "derive", "started", &deriveStart, nil, 0)

	geo := ResolveGeo(tables.Geo)
	purchase := PurchaseIndex(tables.Orders)
	aggs, pairs := AggregateItems(tables.Items, IndexSellers(tables.Sellers), geo, IndexProducts(tables.Products), purchase)
	fmt.Printf("📊 Aggregated %d orders across %d order-seller pairs\n", len(aggs), len(pairs))

	orders := IndexOrders(tables.Orders)
	delayRates := SellerDelayRates(ctx, pairs, orders, cfg.Workers)
	reviewFeats := ReviewHistoryFeatures(ctx, pairs, orders, tables.Reviews, cfg.Workers)
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := AssembleRows(tables, geo, aggs, delayRates, reviewFeats)
	finishStage(st, runID, "derive", deriveStart, len(rows))
	fmt.Printf("📊 Assembled %d delivered-order feature rows\n", len(rows))

	// --- EXPORT ---
	exportStart := time.Now()
	st.UpdateRunStatus(runID, "exporting")
	st.SaveStageProgress(runID, "export", "started", &exportStart, nil, 0)

	for _, res := range ExportDataset(rows, cfg, st, runID) {
		if !res.Success {
			return fmt.Errorf("export %s to %s: %s", res.Type, res.Path, res.Error)
		}
		fmt.Printf("💾 Exported %d records to %s (%s)\n", res.RecordCount, res.Path, res.Type)
	}
	finishStage(st, runID, "export", exportStart, len(rows))

	st.UpdateRunStatus(runID, "completed")
	fmt.Printf("🏁 Pipeline run %s completed in %v\n", runID, time.Since(start))
	return nil
}

func finishStage(st *store.Store, runID, stage string, started time.Time, records int) {
	ended := time.Now()
	st.SaveStageProgress(runID, stage, "completed", &started, &ended, records)
}

// IndexOrders builds an order_id lookup.
func IndexOrders(orders []model.Order) map[string]model.Order {
	byID := make(map[string]model.Order, len(orders))
	for _, o := range orders {
		byID[o.OrderID] = o
	}
	return byID
}
