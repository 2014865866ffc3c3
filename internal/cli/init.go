// Package cli consolidates the initialization shared by cmd/finanzas,
// cmd/finanzas-worker and cmd/finanzas-report.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"finanzas/internal/amqp"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// Setup loads the optional .env file, installs the default logger and
// returns it tagged with the given component.
func Setup(component string) *log.Logger {
	_ = godotenv.Load()
	logger := log.New(log.Config{Level: logLevel(), Component: component})
	log.SetDefault(logger)
	return logger
}

func logLevel() slog.Level {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// LoadAndValidateConfig loads configuration or exits the process when
// validation fails.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the record store or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("failed to open record store", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitAMQP connects to the broker or exits the process on failure.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.CommandsQueue, cfg.EventsQueue)
	if err != nil {
		logger.Error("failed to connect to broker", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("broker connected",
		log.FieldExchange, cfg.AMQPExchange,
		log.FieldQueue, cfg.CommandsQueue)
	return client
}
