package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/daemon"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	logger := cli.Setup(log.ComponentApp)
	logger.Info("starting finanzas ledger daemon", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	defer amqpClient.Close()

	ledger := services.NewLedgerService(repo, amqpClient, logger)
	rates := services.NewRateService(repo, amqpClient, cache.NewLRU[decimal.Decimal](1, cfg.RateCacheTTL), logger)
	dispatcher := daemon.NewDispatcher(ledger, rates, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return amqpClient.ConsumeCommands(ctx, func(cmd *amqp.Command) error {
			return dispatcher.Handle(ctx, cmd)
		})
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("daemon stopped", log.FieldOperation, log.OpShutdown)
}
