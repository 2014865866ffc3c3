// Package daemon turns queued commands into engine operations. It is
// the only layer that sees raw command payloads; everything past it
// works with typed records.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

// Dispatcher decodes each command payload and routes it to the matching
// service operation.
type Dispatcher struct {
	ledger *services.LedgerService
	rates  *services.RateService
	logger *log.Logger
}

func NewDispatcher(ledger *services.LedgerService, rates *services.RateService, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		ledger: ledger,
		rates:  rates,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// Handle runs one command. Validation and state errors are logged and
// swallowed so the consumer acks the message: redelivering a bad
// command can never make it good. Infrastructure errors surface so the
// command is requeued.
func (d *Dispatcher) Handle(ctx context.Context, cmd *amqp.Command) error {
	var err error
	switch cmd.Op {
	case amqp.CmdCreateDueItem:
		err = d.createDueItem(ctx, cmd.Payload)
	case amqp.CmdEditDueItem:
		err = d.editDueItem(ctx, cmd.Payload)
	case amqp.CmdDeleteDueItem:
		err = d.deleteDueItem(ctx, cmd.Payload)
	case amqp.CmdSettleDueItem:
		err = d.settleDueItem(ctx, cmd.Payload)
	case amqp.CmdUnsettleDueItem:
		err = d.unsettleDueItem(ctx, cmd.Payload)
	case amqp.CmdCreateIncome:
		err = d.createIncome(ctx, cmd.Payload)
	case amqp.CmdEditIncome:
		err = d.editIncome(ctx, cmd.Payload)
	case amqp.CmdDeleteIncome:
		err = d.deleteIncome(ctx, cmd.Payload)
	case amqp.CmdToggleInstallment:
		err = d.toggleInstallment(ctx, cmd.Payload)
	case amqp.CmdCreateExpense:
		err = d.createExpense(ctx, cmd.Payload)
	case amqp.CmdSetRate:
		err = d.setRate(ctx, cmd.Payload)
	default:
		d.logger.Warn("dropping command with unknown op", log.FieldOperation, cmd.Op)
		return nil
	}
	return d.outcome(cmd.Op, err)
}

func (d *Dispatcher) outcome(op string, err error) error {
	if err == nil {
		return nil
	}
	if kind, ok := core.KindOf(err); ok && kind != core.KindConsistency {
		d.logger.Warn("command rejected",
			log.FieldOperation, op,
			log.FieldError, err)
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// recordAmountPayload is the money part shared by due item and expense
// payloads: a positive decimal string plus its currency. USD amounts
// are frozen against the configured rate at dispatch time.
type recordAmountPayload struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func (d *Dispatcher) amount(ctx context.Context, p recordAmountPayload) (core.MoneyAmount, *core.ConversionSnapshot, error) {
	value, err := core.ParseDecimal(p.Amount)
	if err != nil {
		return core.MoneyAmount{}, nil, err
	}
	switch core.Currency(p.Currency) {
	case core.ARS:
		return core.ARSAmount(value), nil, nil
	case core.USD:
		rate, err := d.rates.Rate(ctx)
		if err != nil {
			return core.MoneyAmount{}, nil, err
		}
		snap, err := core.SnapshotFromUSD(value, rate)
		if err != nil {
			return core.MoneyAmount{}, nil, err
		}
		return snap.Amount(), &snap, nil
	default:
		return core.MoneyAmount{}, nil, fmt.Errorf("currency %q: %w", p.Currency, core.ErrInvalidInput)
	}
}

type dueItemPayload struct {
	recordAmountPayload
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"due_date"`
	Recurring   bool   `json:"recurring"`
}

func (d *Dispatcher) createDueItem(ctx context.Context, raw json.RawMessage) error {
	var p dueItemPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	amount, snap, err := d.amount(ctx, p.recordAmountPayload)
	if err != nil {
		return err
	}
	dueDate, err := core.ParseDate(p.DueDate)
	if err != nil {
		return err
	}
	_, err = d.ledger.CreateDueItem(ctx, services.CreateDueItemParams{
		Description: p.Description,
		Category:    p.Category,
		Amount:      amount,
		Snapshot:    snap,
		DueDate:     dueDate,
		Recurring:   p.Recurring,
	})
	return err
}

type editDueItemPayload struct {
	ID string `json:"id"`
	dueItemPayload
}

func (d *Dispatcher) editDueItem(ctx context.Context, raw json.RawMessage) error {
	var p editDueItemPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	amount, snap, err := d.amount(ctx, p.recordAmountPayload)
	if err != nil {
		return err
	}
	dueDate, err := core.ParseDate(p.DueDate)
	if err != nil {
		return err
	}
	_, err = d.ledger.EditDueItem(ctx, p.ID, core.DueItemPatch{
		Description: p.Description,
		Category:    p.Category,
		Amount:      amount,
		Snapshot:    snap,
		DueDate:     dueDate,
		Recurring:   p.Recurring,
	})
	return err
}

type idPayload struct {
	ID string `json:"id"`
}

func (d *Dispatcher) deleteDueItem(ctx context.Context, raw json.RawMessage) error {
	var p idPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return d.ledger.DeleteDueItem(ctx, p.ID)
}

type settlePayload struct {
	ID            string `json:"id"`
	PaymentMethod string `json:"payment_method"`
}

func (d *Dispatcher) settleDueItem(ctx context.Context, raw json.RawMessage) error {
	var p settlePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	_, err := d.ledger.SettleDueItem(ctx, p.ID, p.PaymentMethod)
	return err
}

func (d *Dispatcher) unsettleDueItem(ctx context.Context, raw json.RawMessage) error {
	var p idPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	_, err := d.ledger.UnsettleDueItem(ctx, p.ID)
	return err
}

type manualSplitPayload struct {
	FirstAmount   string `json:"first_amount"`
	SecondAmount  string `json:"second_amount"`
	SecondDueDate string `json:"second_due_date"`
}

type incomePayload struct {
	Description  string              `json:"description"`
	Currency     string              `json:"currency"`
	TotalAmount  string              `json:"total_amount"`
	FirstDueDate string              `json:"first_due_date"`
	Split        string              `json:"split"`
	Manual       *manualSplitPayload `json:"manual,omitempty"`
}

func (d *Dispatcher) incomeParams(ctx context.Context, p incomePayload) (services.CreateIncomeParams, error) {
	total, err := core.ParseDecimal(p.TotalAmount)
	if err != nil {
		return services.CreateIncomeParams{}, err
	}
	currency := core.Currency(p.Currency)
	if !currency.Valid() {
		return services.CreateIncomeParams{}, fmt.Errorf("currency %q: %w", p.Currency, core.ErrInvalidInput)
	}
	rate, err := d.rates.Rate(ctx)
	if err != nil {
		return services.CreateIncomeParams{}, err
	}

	var snap core.ConversionSnapshot
	if currency == core.USD {
		snap, err = core.SnapshotFromUSD(total, rate)
	} else {
		snap, err = core.SnapshotFromARS(total, rate)
	}
	if err != nil {
		return services.CreateIncomeParams{}, err
	}

	firstDue, err := core.ParseDate(p.FirstDueDate)
	if err != nil {
		return services.CreateIncomeParams{}, err
	}

	var manual *core.ManualSplit
	if p.Manual != nil {
		first, err := core.ParseDecimal(p.Manual.FirstAmount)
		if err != nil {
			return services.CreateIncomeParams{}, err
		}
		second, err := core.ParseDecimal(p.Manual.SecondAmount)
		if err != nil {
			return services.CreateIncomeParams{}, err
		}
		secondDue, err := core.ParseDate(p.Manual.SecondDueDate)
		if err != nil {
			return services.CreateIncomeParams{}, err
		}
		manual = &core.ManualSplit{FirstAmount: first, SecondAmount: second, SecondDueDate: secondDue}
	}

	return services.CreateIncomeParams{
		Description:  p.Description,
		Currency:     currency,
		Total:        total,
		Snapshot:     snap,
		FirstDueDate: firstDue,
		Split:        core.SplitMode(p.Split),
		Manual:       manual,
	}, nil
}

func (d *Dispatcher) createIncome(ctx context.Context, raw json.RawMessage) error {
	var p incomePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	params, err := d.incomeParams(ctx, p)
	if err != nil {
		return err
	}
	_, err = d.ledger.CreateIncome(ctx, params)
	return err
}

type editIncomePayload struct {
	ID string `json:"id"`
	incomePayload
}

func (d *Dispatcher) editIncome(ctx context.Context, raw json.RawMessage) error {
	var p editIncomePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	params, err := d.incomeParams(ctx, p.incomePayload)
	if err != nil {
		return err
	}
	_, err = d.ledger.EditIncome(ctx, p.ID, core.IncomePatch{
		Description:  params.Description,
		Currency:     params.Currency,
		TotalAmount:  params.Total,
		Snapshot:     params.Snapshot,
		FirstDueDate: params.FirstDueDate,
		Split:        params.Split,
		Manual:       params.Manual,
	})
	return err
}

func (d *Dispatcher) deleteIncome(ctx context.Context, raw json.RawMessage) error {
	var p idPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return d.ledger.DeleteIncome(ctx, p.ID)
}

type togglePayload struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}

func (d *Dispatcher) toggleInstallment(ctx context.Context, raw json.RawMessage) error {
	var p togglePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	_, err := d.ledger.ToggleInstallment(ctx, p.ID, p.Index)
	return err
}

type expensePayload struct {
	recordAmountPayload
	Category      string `json:"category"`
	Description   string `json:"description"`
	PaymentMethod string `json:"payment_method"`
	Date          string `json:"date"`
}

func (d *Dispatcher) createExpense(ctx context.Context, raw json.RawMessage) error {
	var p expensePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	amount, _, err := d.amount(ctx, p.recordAmountPayload)
	if err != nil {
		return err
	}
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return err
	}
	_, err = d.ledger.CreateExpense(ctx, services.CreateExpenseParams{
		Category:      p.Category,
		Description:   p.Description,
		Amount:        amount,
		PaymentMethod: p.PaymentMethod,
		Date:          date,
	})
	return err
}

type ratePayload struct {
	Rate string `json:"rate"`
}

func (d *Dispatcher) setRate(ctx context.Context, raw json.RawMessage) error {
	var p ratePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	rate, err := core.ParseDecimal(p.Rate)
	if err != nil {
		return fmt.Errorf("rate %q: %w", p.Rate, core.ErrInvalidRate)
	}
	return d.rates.SetRate(ctx, rate)
}

// decode rejects malformed payloads as validation errors so they are
// dropped, not requeued.
func decode(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %s: %w", err, core.ErrInvalidInput)
	}
	return nil
}
