package services

import (
	"context"
	"fmt"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/store"
)

// SummaryService computes month overviews over whatever record source
// the process is configured with (the live SQLite store or the local
// mirror). Overviews are cached per month key and invalidated whenever
// a mutation touches expenses or budgets.
type SummaryService struct {
	expenses store.ExpenseSource
	budgets  store.BudgetSource
	cache    cache.Cache[core.MonthOverview]
	logger   *log.Logger
}

func NewSummaryService(expenses store.ExpenseSource, budgets store.BudgetSource, c cache.Cache[core.MonthOverview], logger *log.Logger) *SummaryService {
	return &SummaryService{
		expenses: expenses,
		budgets:  budgets,
		cache:    c,
		logger:   logger.WithComponent(log.ComponentSummary),
	}
}

// MonthOverview aggregates one calendar month: per-category totals,
// budget variance and the month total.
func (s *SummaryService) MonthOverview(ctx context.Context, year int, month int) (core.MonthOverview, error) {
	key := fmt.Sprintf("%04d-%02d", year, month)
	if overview, ok := s.cache.Get(key); ok {
		return overview, nil
	}

	expenses, err := s.expenses.ListExpenses(ctx, year, month)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("listing expenses for %s: %w", key, err)
	}
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("listing budgets: %w", err)
	}

	overview := core.BuildMonthOverview(year, month, expenses, budgets)
	s.cache.Set(key, overview)
	s.logger.Debug("month overview computed",
		log.FieldMonthKey, key,
		"expenses", len(expenses))
	return overview, nil
}

// Invalidate drops the cached overview of one month, in "YYYY-MM" form.
func (s *SummaryService) Invalidate(monthKey string) {
	s.cache.Delete(monthKey)
}
