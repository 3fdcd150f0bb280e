package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"otif-pipeline/internal/config"
	"otif-pipeline/internal/pipeline"
	"otif-pipeline/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML run configuration")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	st, err := store.Open(cfg.TrackingDB)
	if err != nil {
		log.Fatalf("open tracking store: %v", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()
	if err := pipeline.Run(ctx, runID, cfg, st); err != nil {
		log.Fatalf("pipeline run %s failed: %v", runID, err)
	}
}
