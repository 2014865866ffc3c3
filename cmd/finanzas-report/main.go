// finanzas-report prints a month overview and the state of pending
// obligations. It reads from the configured record source, so it works
// against the live store or fully offline against the local mirror.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	monthFlag := flag.String("month", "", "month to report on, YYYY-MM (default: current month)")
	flag.Parse()

	logger := cli.Setup(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	year, month, err := resolveMonth(*monthFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -month: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger)
	result, err := factory.CreateSource(ctx, backend.Config{
		Kind:          backend.Kind(cfg.RecordSource),
		SQLiteDBPath:  cfg.SQLiteDBPath,
		DataDirectory: cfg.LocalDataDir,
	})
	if err != nil {
		logger.Error("failed to open record source", log.FieldError, err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	summaries := services.NewSummaryService(result.Source, result.Source,
		cache.NewLRU[core.MonthOverview](cfg.OverviewCacheMax, cfg.OverviewCacheTTL), logger)

	overview, err := summaries.MonthOverview(ctx, year, month)
	if err != nil {
		logger.Error("failed to build month overview", log.FieldError, err)
		os.Exit(1)
	}
	printOverview(overview)

	items, err := result.Source.ListDueItems(ctx)
	if err != nil {
		logger.Error("failed to list due items", log.FieldError, err)
		os.Exit(1)
	}
	printDueItems(items)
}

func resolveMonth(raw string) (int, int, error) {
	if raw == "" {
		now := time.Now()
		return now.Year(), int(now.Month()), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), int(t.Month()), nil
}

func printOverview(o core.MonthOverview) {
	fmt.Printf("Overview %04d-%02d\n", o.Year, o.Month)
	if len(o.ByCategory) == 0 {
		fmt.Println("  no expenses recorded")
		return
	}
	for _, row := range o.ByCategory {
		line := fmt.Sprintf("  %-20s %s", row.Name, core.Display(row.Amount, core.ARS))
		if !row.Budgeted.IsZero() {
			line += fmt.Sprintf("  (budget %s, variance %s)",
				core.Display(row.Budgeted, core.ARS), row.Variance.StringFixed(2))
		}
		fmt.Println(line)
	}
	fmt.Printf("  %-20s %s\n", "total", core.Display(o.Total, core.ARS))
}

func printDueItems(items []core.DueItem) {
	today := core.Today()
	byStatus := core.SplitByStatus(items, today)

	for _, status := range []core.DueStatus{core.StatusOverdue, core.StatusDueToday, core.StatusUpcoming} {
		group := byStatus[status]
		if len(group) == 0 {
			continue
		}
		fmt.Printf("\n%s (%d)\n", status, len(group))
		for _, item := range group {
			fmt.Printf("  %s  %-25s %s\n", item.DueDate, item.Description, item.Amount)
		}
	}
}
