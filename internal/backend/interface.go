// Package backend selects where the aggregation side reads records
// from: the live SQLite store or the offline mirror kept by the feed
// worker. Both expose the same source ports so the summary service
// never knows which one it is on.
package backend

import (
	"context"

	"finanzas/internal/store"
)

// Source bundles the read ports a record source must provide.
type Source interface {
	store.ExpenseSource
	store.BudgetSource
	store.DueItemSource
}

// CleanupFunc releases whatever the source holds open.
type CleanupFunc func() error

// Result carries the source plus its optional cleanup.
type Result struct {
	Source  Source
	Cleanup CleanupFunc
}

// Factory creates record sources from configuration.
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds record source configuration.
type Config struct {
	Kind Kind

	// sqlite
	SQLiteDBPath string

	// local mirror
	DataDirectory string
}

// Kind is the record source selector.
type Kind string

const (
	SQLiteSource Kind = "sqlite"
	LocalSource  Kind = "local"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case SQLiteSource, LocalSource:
		return true
	default:
		return false
	}
}
