package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/log"
	"finanzas/internal/store"
	"finanzas/internal/store/local"
	"finanzas/internal/store/sheets"
	"finanzas/internal/worker"
)

func main() {
	logger := cli.Setup(log.ComponentWorker)
	logger.Info("starting finanzas feed worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	mirror, err := local.Open(cfg.LocalDataDir)
	if err != nil {
		logger.Error("failed to open local mirror", log.FieldError, err, "dir", cfg.LocalDataDir)
		os.Exit(1)
	}

	// The sheets export is optional; without a spreadsheet id the worker
	// only maintains the mirror.
	var appender store.ExpenseAppender
	if cfg.SheetsSpreadsheetID != "" {
		client, err := sheets.New(context.Background(), cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			logger.Error("failed to initialize sheets export", log.FieldError, err)
			os.Exit(1)
		}
		appender = client
		logger.Info("sheets export enabled", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	} else {
		logger.Info("sheets export disabled, no spreadsheet id configured")
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	defer amqpClient.Close()

	feedWorker := worker.NewFeedWorker(mirror, appender, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return amqpClient.ConsumeRecordEvents(ctx, func(event *amqp.RecordEvent) error {
			return feedWorker.HandleRecordEvent(ctx, event)
		})
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped", log.FieldOperation, log.OpShutdown)
}
