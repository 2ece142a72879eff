package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wonchon/internal/amqp"
	"wonchon/internal/cli"
	"wonchon/internal/ledger"
	gledger "wonchon/internal/ledger/google"
	"wonchon/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting wonchon-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the document worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Ledger rows are optional; documents are always stored.
	var writer ledger.Writer
	if cfg.LedgerEnabled() {
		client, err := gledger.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets ledger", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Ledger disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	docWorker := worker.NewDocumentWorker(repo, writer)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := repo.Close(); err != nil {
			logger.Error("SQLite close error", "error", err)
		}
	})

	go func() {
		if err := amqpClient.ConsumeFilingCompleted(ctx, docWorker.HandleFilingCompleted); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
				os.Exit(1)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
