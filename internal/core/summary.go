package core

import (
	"iter"
	"sort"

	"github.com/shopspring/decimal"
)

// UncategorizedBucket collects expenses with a blank category instead of
// failing the aggregation.
const UncategorizedBucket = "uncategorized"

// GroupByMonth groups records by the YYYY-MM key of the date dateOf extracts.
// Records whose date is missing (zero) are excluded, not errors: a record
// with a broken date must never poison a whole dashboard aggregation.
func GroupByMonth[T any](records []T, dateOf func(T) Date) map[string][]T {
	out := make(map[string][]T)
	for _, r := range records {
		d := dateOf(r)
		if d.IsZero() {
			continue
		}
		key := d.MonthKey()
		out[key] = append(out[key], r)
	}
	return out
}

// GroupByCategory sums expense amounts per category. Blank categories fall
// into the uncategorized bucket.
func GroupByCategory(expenses []ExpenseRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = UncategorizedBucket
		}
		out[cat] = out[cat].Add(e.Amount.Value())
	}
	return out
}

// MonthOptions yields YYYY-MM keys in reverse chronological order, from
// monthsForward after the reference month down to monthsBack before it. The
// sequence is finite and restartable; it exists to populate month filters
// without querying live data.
func MonthOptions(reference Date, monthsBack, monthsForward int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := monthsForward; i >= -monthsBack; i-- {
			if !yield(reference.AddMonths(i).MonthKey()) {
				return
			}
		}
	}
}

// CategoryAmount is one category row of a month overview, with the budget
// variance when a budget is defined for the category.
type CategoryAmount struct {
	Name     string
	Amount   decimal.Decimal
	Budgeted decimal.Decimal
	Variance decimal.Decimal // budgeted - spent; negative means over budget
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      decimal.Decimal
	ByCategory []CategoryAmount
}

// BuildMonthOverview aggregates the given expenses (all assumed to belong to
// the same month) into per-category totals with budget variance. Categories
// are sorted by name for stable rendering.
func BuildMonthOverview(year, month int, expenses []ExpenseRecord, budgets []CategoryBudget) MonthOverview {
	overview := MonthOverview{Year: year, Month: month}

	budgeted := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		budgeted[b.Name] = b.Budgeted
	}

	sums := GroupByCategory(expenses)
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		amount := sums[name]
		row := CategoryAmount{Name: name, Amount: amount}
		if b, ok := budgeted[name]; ok {
			row.Budgeted = b
			row.Variance = b.Sub(amount)
		}
		overview.ByCategory = append(overview.ByCategory, row)
		overview.Total = overview.Total.Add(amount)
	}
	return overview
}
