package backend

import (
	"context"
	"fmt"

	"finanzas/internal/log"
	"finanzas/internal/storage"
	"finanzas/internal/store/local"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

func (f *DefaultFactory) CreateSource(_ context.Context, config Config) (*Result, error) {
	if !config.Kind.IsValid() {
		return nil, fmt.Errorf("invalid record source %q", config.Kind)
	}

	switch config.Kind {
	case SQLiteSource:
		return f.createSQLiteSource(config)
	case LocalSource:
		return f.createLocalSource(config)
	default:
		return nil, fmt.Errorf("unsupported record source %q", config.Kind)
	}
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}

	f.logger.Info("record source ready", "source", SQLiteSource.String(), "db_path", config.SQLiteDBPath)
	return &Result{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createLocalSource(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	mirror, err := local.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening local mirror: %w", err)
	}

	f.logger.Info("record source ready", "source", LocalSource.String(), "data_dir", dataDir)
	return &Result{Source: mirror}, nil
}
