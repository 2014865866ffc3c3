package core

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseRecord is a single dated expense. It is created either directly by
// expense entry or materialized by settling a due item; in the latter case
// the due item holds the only back-reference (its linked expense id).
type ExpenseRecord struct {
	ID            string      `json:"id"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	Amount        MoneyAmount `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	Date          Date        `json:"date"`
}

// NewExpense validates and builds a directly entered expense.
func NewExpense(category, description string, amount MoneyAmount, paymentMethod string, date Date) (ExpenseRecord, error) {
	if strings.TrimSpace(category) == "" {
		return ExpenseRecord{}, ErrEmptyCategory
	}
	if err := amount.Validate(); err != nil {
		return ExpenseRecord{}, err
	}
	if date.IsZero() {
		return ExpenseRecord{}, ErrInvalidDate
	}
	return ExpenseRecord{
		ID:            uuid.NewString(),
		Category:      category,
		Description:   description,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		Date:          date,
	}, nil
}

// CategoryBudget is a per-category monthly budget consumed by the period
// aggregator to compute variance. The engine reads it, never mutates it.
type CategoryBudget struct {
	Name     string          `json:"name"`
	Budgeted decimal.Decimal `json:"budgeted_amount"`
}
