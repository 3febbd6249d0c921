package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retail-pipeline/config"
	"retail-pipeline/services"
	"retail-pipeline/storage"
	"retail-pipeline/utils"
)

type runStore interface {
	storage.Store
	storage.TransactionLogWriter
	storage.SummaryHistory
}

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogMode)

	if err := run(cfg, logger); err != nil {
		logger.Error("Pipeline run failed: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Retail pipeline starting ===")
	logger.Info("Config: input %s | window %s | run key %s | concurrency %d | dry run %t",
		cfg.RawCSVPath, cfg.Window, cfg.RunKey, cfg.MaxConcurrency, cfg.DryRun)

	windowBy, err := services.ParseWindowBy(cfg.Window)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	reader, err := storage.OpenCSVReader(cfg.RawCSVPath)
	if err != nil {
		return err
	}
	raw, err := reader.ReadAll()
	_ = reader.Close()
	if err != nil {
		return err
	}
	logger.Info("Extracted %d raw records from %s", len(raw), cfg.RawCSVPath)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := services.NewPipeline(logger, cfg.MaxConcurrency)
	batch, results, err := pipeline.Run(ctx, cfg.RunKey, raw, windowBy)
	if err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(cfg.ProcessedCSVPath)
	if err != nil {
		logger.Warn("Processed export skipped: %v", err)
	} else {
		if err := csvWriter.WriteTransactions(batch.Transactions); err != nil {
			logger.Warn("Processed export failed: %v", err)
		} else {
			logger.Info("Processed transactions saved to %s", cfg.ProcessedCSVPath)
		}
		_ = csvWriter.Close()
	}

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}

	if err := retry.Do(ctx, "load transaction log", func(ctx context.Context) error {
		return store.WriteTransactions(ctx, batch.Transactions)
	}); err != nil {
		return err
	}

	for _, res := range results {
		res := res
		var applied storage.ApplyResult
		if err := retry.Do(ctx, "apply plan "+res.Summary.RunKey, func(ctx context.Context) error {
			var err error
			applied, err = store.Apply(ctx, res.Plan)
			return err
		}); err != nil {
			return err
		}
		for _, key := range applied.DuplicateRunKeys {
			logger.Warn("Summary %s already recorded; same input was loaded before, no history row added", key)
		}
		logger.Info("Applied %d upserts and %d summaries for window %s (run %s)",
			applied.Upserts, applied.SummariesInserted, res.Summary.Window, res.Summary.RunID)
	}

	history, err := store.FetchSummaries(ctx, 5)
	if err != nil {
		logger.Warn("Could not read summary history: %v", err)
	}
	for _, s := range history {
		logger.Debug("History: %s | %d txns | revenue %.2f | quality %.2f",
			s.RunKey, s.TotalTransactions, s.TotalRevenue, s.DataQualityScore)
	}

	reporter := services.NewReporter(logger)
	reporter.Print(reporter.Generate(results, batch.Transactions))
	return nil
}

func openStore(cfg *config.Config) (runStore, error) {
	if cfg.DryRun {
		return storage.NewMemoryStore(), nil
	}
	pg, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	return pg, nil
}
