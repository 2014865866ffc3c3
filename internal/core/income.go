package core

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitMode says how an income is divided into installments.
type SplitMode string

const (
	SplitNone   SplitMode = "none"
	SplitAuto   SplitMode = "auto"
	SplitManual SplitMode = "manual"
)

// autoSplitBusinessDays is the fixed business-day gap between the two
// installments of an AUTO-split income.
const autoSplitBusinessDays = 30

// Installment is one dated, independently receivable portion of an income.
// Installments are embedded in their record; they have no identity or
// lifecycle of their own.
type Installment struct {
	Amount   decimal.Decimal `json:"amount"`
	DueDate  Date            `json:"due_date"`
	Received bool            `json:"received"`
}

// IncomeRecord is a scheduled income, whole or split into two installments.
// Invariants: SplitNone has exactly one installment equal to TotalAmount;
// AUTO and MANUAL have exactly two whose amounts sum to TotalAmount (AUTO may
// drift by one cent on odd-cent totals, see the note on NewIncome).
// AmountReceived is always the sum of received installments' amounts.
type IncomeRecord struct {
	ID             string             `json:"id"`
	Description    string             `json:"description"`
	Currency       Currency           `json:"currency"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Snapshot       ConversionSnapshot `json:"snapshot"`
	Split          SplitMode          `json:"split"`
	Installments   []Installment      `json:"installments"`
	AmountReceived decimal.Decimal    `json:"amount_received"`
}

// ManualSplit carries the caller-supplied division for SplitManual.
type ManualSplit struct {
	FirstAmount   decimal.Decimal
	SecondAmount  decimal.Decimal
	SecondDueDate Date
}

// NewIncome validates and builds an income record.
//
// For SplitAuto each installment is round2(total/2) with no reconciliation of
// the lost remainder cent, so on odd-cent totals the installments may sum to
// one cent more than the total. That drift is preserved behavior, not an
// accident of this implementation; AmountReceived tracks installment amounts,
// so reconciliation state stays internally consistent either way.
func NewIncome(description string, currency Currency, total decimal.Decimal, snapshot ConversionSnapshot, firstDueDate Date, split SplitMode, manual *ManualSplit) (IncomeRecord, error) {
	rec, err := incomeParts(description, currency, total, snapshot, firstDueDate, split, manual)
	if err != nil {
		return IncomeRecord{}, err
	}
	rec.ID = uuid.NewString()
	return rec, nil
}

// incomeParts builds and validates everything but the record id, shared by
// creation and wholesale edit.
func incomeParts(description string, currency Currency, total decimal.Decimal, snapshot ConversionSnapshot, firstDueDate Date, split SplitMode, manual *ManualSplit) (IncomeRecord, error) {
	if strings.TrimSpace(description) == "" {
		return IncomeRecord{}, ErrEmptyDescription
	}
	if !currency.Valid() {
		return IncomeRecord{}, ErrInvalidInput
	}
	if !total.IsPositive() {
		return IncomeRecord{}, ErrInvalidAmount
	}
	if firstDueDate.IsZero() {
		return IncomeRecord{}, ErrInvalidDate
	}

	rec := IncomeRecord{
		Description: description,
		Currency:    currency,
		TotalAmount: total,
		Snapshot:    snapshot,
		Split:       split,
	}

	switch split {
	case SplitNone:
		rec.Installments = []Installment{{Amount: total, DueDate: firstDueDate}}
	case SplitAuto:
		half := Round2(total.Div(decimal.NewFromInt(2)))
		second, err := AddBusinessDays(firstDueDate, autoSplitBusinessDays)
		if err != nil {
			return IncomeRecord{}, err
		}
		rec.Installments = []Installment{
			{Amount: half, DueDate: firstDueDate},
			{Amount: half, DueDate: second},
		}
	case SplitManual:
		if manual == nil {
			return IncomeRecord{}, ErrInvalidSplit
		}
		if !manual.FirstAmount.IsPositive() || !manual.SecondAmount.IsPositive() {
			return IncomeRecord{}, ErrInvalidSplit
		}
		if manual.SecondDueDate.IsZero() {
			return IncomeRecord{}, ErrInvalidSplit
		}
		if !manual.FirstAmount.Add(manual.SecondAmount).Equal(total) {
			return IncomeRecord{}, ErrInvalidSplit
		}
		rec.Installments = []Installment{
			{Amount: manual.FirstAmount, DueDate: firstDueDate},
			{Amount: manual.SecondAmount, DueDate: manual.SecondDueDate},
		}
	default:
		return IncomeRecord{}, ErrInvalidSplit
	}

	return rec, nil
}

// ToggleInstallmentReceived flips the received flag of one installment and
// recomputes AmountReceived. Toggling twice restores the prior state; no
// other record is touched.
func ToggleInstallmentReceived(rec IncomeRecord, index int) (IncomeRecord, error) {
	if index < 0 || index >= len(rec.Installments) {
		return IncomeRecord{}, ErrInvalidInput
	}
	installments := make([]Installment, len(rec.Installments))
	copy(installments, rec.Installments)
	installments[index].Received = !installments[index].Received

	rec.Installments = installments
	rec.AmountReceived = receivedTotal(installments)
	return rec, nil
}

// IncomePatch is the wholesale replacement applied by EditIncome.
type IncomePatch struct {
	Description  string
	Currency     Currency
	TotalAmount  decimal.Decimal
	Snapshot     ConversionSnapshot
	FirstDueDate Date
	Split        SplitMode
	Manual       *ManualSplit
}

// EditIncome replaces currency, amount, snapshot and installments wholesale.
// Received flags survive only when the installment count is unchanged; when
// the count changes the caller must reapply them.
func EditIncome(rec IncomeRecord, patch IncomePatch) (IncomeRecord, error) {
	edited, err := incomeParts(patch.Description, patch.Currency, patch.TotalAmount, patch.Snapshot, patch.FirstDueDate, patch.Split, patch.Manual)
	if err != nil {
		return IncomeRecord{}, err
	}
	edited.ID = rec.ID

	if len(edited.Installments) == len(rec.Installments) {
		for i := range edited.Installments {
			edited.Installments[i].Received = rec.Installments[i].Received
		}
	}
	edited.AmountReceived = receivedTotal(edited.Installments)
	return edited, nil
}

func receivedTotal(installments []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, in := range installments {
		if in.Received {
			total = total.Add(in.Amount)
		}
	}
	return total
}
