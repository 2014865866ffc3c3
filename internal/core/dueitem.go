package core

import (
	"strings"

	"github.com/google/uuid"
)

// DueItem is a scheduled obligation (vencimiento). It is a two-state machine:
// PENDING until settled, SETTLED while a linked expense record exists.
// Settled == true exactly when LinkedExpenseID is set; the linked expense
// carries the same amount, date and category. Deleting a due item is not a
// state transition and deliberately does not cascade to a previously linked
// expense; once materialized, an expense is part of the spending history.
type DueItem struct {
	ID              string              `json:"id"`
	Description     string              `json:"description"`
	Category        string              `json:"category"`
	Amount          MoneyAmount         `json:"amount"`
	Snapshot        *ConversionSnapshot `json:"snapshot,omitempty"`
	DueDate         Date                `json:"due_date"`
	Recurring       bool                `json:"recurring"`
	Settled         bool                `json:"settled"`
	LinkedExpenseID string              `json:"linked_expense_id,omitempty"`
}

// NewDueItem validates and builds a pending due item.
func NewDueItem(description, category string, amount MoneyAmount, snapshot *ConversionSnapshot, dueDate Date, recurring bool) (DueItem, error) {
	if strings.TrimSpace(category) == "" {
		return DueItem{}, ErrEmptyCategory
	}
	if err := amount.Validate(); err != nil {
		return DueItem{}, err
	}
	if dueDate.IsZero() {
		return DueItem{}, ErrInvalidDate
	}
	return DueItem{
		ID:          uuid.NewString(),
		Description: description,
		Category:    category,
		Amount:      amount,
		Snapshot:    snapshot,
		DueDate:     dueDate,
		Recurring:   recurring,
	}, nil
}

// SettleResult carries the three effects of a settlement plus the single
// transaction that commits them together.
type SettleResult struct {
	Item      DueItem
	Expense   ExpenseRecord
	Successor *DueItem // nil unless the item recurs
	Tx        Transaction
}

// Settle transitions a pending due item to SETTLED. It materializes an
// expense record copying the item's category, description, amount and due
// date, links it, and for recurring items spawns the next occurrence one
// calendar month later, itself pending and unlinked. All writes land in one
// Transaction; applying it partially would orphan the expense or leave the
// item settled without a link, so the storage collaborator must commit it
// atomically or reject the whole operation.
func (item DueItem) Settle(paymentMethod string) (SettleResult, error) {
	if item.Settled {
		return SettleResult{}, ErrAlreadySettled
	}

	expense := ExpenseRecord{
		ID:            uuid.NewString(),
		Category:      item.Category,
		Description:   item.Description,
		Amount:        item.Amount,
		PaymentMethod: paymentMethod,
		Date:          item.DueDate,
	}

	settled := item
	settled.Settled = true
	settled.LinkedExpenseID = expense.ID

	res := SettleResult{Item: settled, Expense: expense}
	res.Tx.Put(CollectionExpenses, expense.ID, expense)
	res.Tx.Put(CollectionDueItems, settled.ID, settled)

	if item.Recurring {
		next := item
		next.ID = uuid.NewString()
		next.DueDate = item.DueDate.AddMonths(1)
		next.Settled = false
		next.LinkedExpenseID = ""
		res.Successor = &next
		res.Tx.Put(CollectionDueItems, next.ID, next)
	}

	return res, nil
}

// UnsettleResult carries the reverted item and the id of the expense whose
// deletion the caller must apply.
type UnsettleResult struct {
	Item            DueItem
	ExpenseToDelete string
	Tx              Transaction
}

// Unsettle transitions a settled due item back to PENDING, clearing the link
// and signalling deletion of exactly the expense it had linked. A recurring
// successor already spawned by a prior Settle is not retracted; recurrence is
// one-directional.
func (item DueItem) Unsettle() (UnsettleResult, error) {
	if !item.Settled {
		return UnsettleResult{}, ErrNotSettled
	}

	expenseID := item.LinkedExpenseID
	pending := item
	pending.Settled = false
	pending.LinkedExpenseID = ""

	res := UnsettleResult{Item: pending, ExpenseToDelete: expenseID}
	res.Tx.Put(CollectionDueItems, pending.ID, pending)
	res.Tx.Delete(CollectionExpenses, expenseID)
	return res, nil
}

// DueItemPatch is the edit applied to a pending due item.
type DueItemPatch struct {
	Description string
	Category    string
	Amount      MoneyAmount
	Snapshot    *ConversionSnapshot
	DueDate     Date
	Recurring   bool
}

// Edit replaces the mutable fields of a pending due item. Settled items
// cannot be edited; unsettle first.
func (item DueItem) Edit(patch DueItemPatch) (DueItem, error) {
	if item.Settled {
		return DueItem{}, ErrCannotEditSettled
	}
	if strings.TrimSpace(patch.Category) == "" {
		return DueItem{}, ErrEmptyCategory
	}
	if err := patch.Amount.Validate(); err != nil {
		return DueItem{}, err
	}
	if patch.DueDate.IsZero() {
		return DueItem{}, ErrInvalidDate
	}

	item.Description = patch.Description
	item.Category = patch.Category
	item.Amount = patch.Amount
	item.Snapshot = patch.Snapshot
	item.DueDate = patch.DueDate
	item.Recurring = patch.Recurring
	return item, nil
}
