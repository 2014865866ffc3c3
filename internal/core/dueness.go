package core

// DueStatus buckets a pending due item for dashboard display.
type DueStatus string

const (
	StatusOverdue  DueStatus = "overdue"
	StatusDueToday DueStatus = "due_today"
	StatusUpcoming DueStatus = "upcoming"
)

// Classify places a due item's date relative to today.
func Classify(item DueItem, today Date) DueStatus {
	switch {
	case item.DueDate.Before(today):
		return StatusOverdue
	case item.DueDate == today:
		return StatusDueToday
	default:
		return StatusUpcoming
	}
}

// SplitByStatus buckets the pending items of a collection; settled items are
// skipped, they no longer owe anything.
func SplitByStatus(items []DueItem, today Date) map[DueStatus][]DueItem {
	out := make(map[DueStatus][]DueItem)
	for _, item := range items {
		if item.Settled {
			continue
		}
		status := Classify(item, today)
		out[status] = append(out[status], item)
	}
	return out
}
