package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSplitByStatus(t *testing.T) {
	today := NewDate(2024, time.June, 10)
	mk := func(due Date, settled bool) DueItem {
		item, err := NewDueItem("x", "Servicios", ARSAmount(decimal.NewFromInt(10)), nil, due, false)
		if err != nil {
			t.Fatalf("due item: %v", err)
		}
		item.Settled = settled
		return item
	}

	items := []DueItem{
		mk(NewDate(2024, time.June, 1), false),
		mk(NewDate(2024, time.June, 10), false),
		mk(NewDate(2024, time.June, 20), false),
		mk(NewDate(2024, time.May, 1), true), // settled, skipped
	}

	buckets := SplitByStatus(items, today)
	if len(buckets[StatusOverdue]) != 1 || len(buckets[StatusDueToday]) != 1 || len(buckets[StatusUpcoming]) != 1 {
		t.Fatalf("unexpected buckets: overdue=%d today=%d upcoming=%d",
			len(buckets[StatusOverdue]), len(buckets[StatusDueToday]), len(buckets[StatusUpcoming]))
	}
}
