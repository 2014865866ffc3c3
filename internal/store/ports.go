// Package store declares the ports the aggregation side of the system reads
// through. The period aggregator must work the same whether records come from
// the live SQLite store or from the client-local cache, so both implement
// these interfaces.
package store

import (
	"context"

	"finanzas/internal/core"
)

type (
	// ExpenseSource lists the expenses of one calendar month.
	ExpenseSource interface {
		ListExpenses(ctx context.Context, year int, month int) ([]core.ExpenseRecord, error)
	}

	// BudgetSource lists the category budgets consumed for variance.
	BudgetSource interface {
		ListBudgets(ctx context.Context) ([]core.CategoryBudget, error)
	}

	// DueItemSource lists every due item, pending and settled, ordered by
	// due date.
	DueItemSource interface {
		ListDueItems(ctx context.Context) ([]core.DueItem, error)
	}

	// ExpenseAppender receives settled or directly entered expenses, one row
	// at a time (the sheets export implements this).
	ExpenseAppender interface {
		AppendExpense(ctx context.Context, e core.ExpenseRecord) (rowRef string, err error)
	}
)
