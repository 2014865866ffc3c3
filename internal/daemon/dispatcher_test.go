package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

type memRepo struct {
	dueItems map[string]core.DueItem
	incomes  map[string]core.IncomeRecord
	expenses map[string]core.ExpenseRecord
	settings map[string]string
	failing  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		dueItems: make(map[string]core.DueItem),
		incomes:  make(map[string]core.IncomeRecord),
		expenses: make(map[string]core.ExpenseRecord),
		settings: make(map[string]string),
	}
}

func (r *memRepo) ApplyTx(_ context.Context, tx core.Transaction) error {
	if r.failing != nil {
		return r.failing
	}
	for _, w := range tx.Writes {
		switch w.Collection {
		case core.CollectionDueItems:
			if w.Op == core.OpDelete {
				delete(r.dueItems, w.ID)
			} else {
				r.dueItems[w.ID] = w.Record.(core.DueItem)
			}
		case core.CollectionExpenses:
			if w.Op == core.OpDelete {
				delete(r.expenses, w.ID)
			} else {
				r.expenses[w.ID] = w.Record.(core.ExpenseRecord)
			}
		case core.CollectionIncomes:
			if w.Op == core.OpDelete {
				delete(r.incomes, w.ID)
			} else {
				r.incomes[w.ID] = w.Record.(core.IncomeRecord)
			}
		case core.CollectionSettings:
			r.settings[w.ID] = w.Record.(string)
		}
	}
	return nil
}

func (r *memRepo) GetDueItem(_ context.Context, id string) (core.DueItem, error) {
	item, ok := r.dueItems[id]
	if !ok {
		return core.DueItem{}, core.ErrNotFound
	}
	return item, nil
}

func (r *memRepo) GetIncome(_ context.Context, id string) (core.IncomeRecord, error) {
	rec, ok := r.incomes[id]
	if !ok {
		return core.IncomeRecord{}, core.ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	rec, ok := r.expenses[id]
	if !ok {
		return core.ExpenseRecord{}, core.ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) GetSetting(_ context.Context, key string) (string, bool, error) {
	value, ok := r.settings[key]
	return value, ok, nil
}

func newDispatcher(repo *memRepo) *Dispatcher {
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	ledger := services.NewLedgerService(repo, nil, logger)
	rates := services.NewRateService(repo, nil, cache.NewLRU[decimal.Decimal](4, time.Minute), logger)
	return NewDispatcher(ledger, rates, logger)
}

func command(t *testing.T, op string, payload any) *amqp.Command {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &amqp.Command{Op: op, Payload: body, Timestamp: time.Now()}
}

func TestCreateDueItemCommandARS(t *testing.T) {
	repo := newMemRepo()
	d := newDispatcher(repo)

	cmd := command(t, amqp.CmdCreateDueItem, map[string]any{
		"description": "alquiler",
		"category":    "vivienda",
		"currency":    "ARS",
		"amount":      "350000,50",
		"due_date":    "2024-06-10",
		"recurring":   true,
	})
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(repo.dueItems) != 1 {
		t.Fatalf("expected 1 due item, got %d", len(repo.dueItems))
	}
	for _, item := range repo.dueItems {
		if item.Snapshot != nil {
			t.Fatal("ARS item must carry no snapshot")
		}
		if item.Amount.ARS == nil || !item.Amount.ARS.Equal(decimal.RequireFromString("350000.5")) {
			t.Fatalf("amount %v", item.Amount)
		}
		if !item.Recurring {
			t.Fatal("recurring flag lost")
		}
	}
}

func TestCreateDueItemCommandUSDFreezesRate(t *testing.T) {
	repo := newMemRepo()
	repo.settings[core.SettingCotizacionUSD] = "1000"
	d := newDispatcher(repo)

	cmd := command(t, amqp.CmdCreateDueItem, map[string]any{
		"description": "hosting",
		"category":    "servicios",
		"currency":    "USD",
		"amount":      "25.50",
		"due_date":    "2024-06-15",
	})
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	for _, item := range repo.dueItems {
		if item.Snapshot == nil {
			t.Fatal("USD item must carry a snapshot")
		}
		if !item.Snapshot.ConvertedAmount.Equal(decimal.RequireFromString("25500")) {
			t.Fatalf("converted %s, want 25500", item.Snapshot.ConvertedAmount)
		}
		if item.Amount.ARS == nil || item.Amount.USD == nil {
			t.Fatal("USD item must carry both sides")
		}
	}
}

func TestUSDCommandWithoutRateRejected(t *testing.T) {
	repo := newMemRepo()
	d := newDispatcher(repo)

	cmd := command(t, amqp.CmdCreateDueItem, map[string]any{
		"description": "hosting",
		"category":    "servicios",
		"currency":    "USD",
		"amount":      "25.50",
		"due_date":    "2024-06-15",
	})
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("missing rate is a validation error and must be dropped, got %v", err)
	}
	if len(repo.dueItems) != 0 {
		t.Fatal("nothing must be persisted without a rate")
	}
}

func TestSettleCommandFlow(t *testing.T) {
	repo := newMemRepo()
	d := newDispatcher(repo)
	ctx := context.Background()

	create := command(t, amqp.CmdCreateDueItem, map[string]any{
		"description": "monotributo",
		"category":    "impuestos",
		"currency":    "ARS",
		"amount":      "15000",
		"due_date":    "2024-06-20",
	})
	if err := d.Handle(ctx, create); err != nil {
		t.Fatalf("create: %v", err)
	}
	var id string
	for itemID := range repo.dueItems {
		id = itemID
	}

	settle := command(t, amqp.CmdSettleDueItem, map[string]any{
		"id":             id,
		"payment_method": "transferencia",
	})
	if err := d.Handle(ctx, settle); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !repo.dueItems[id].Settled {
		t.Fatal("item not settled")
	}
	if len(repo.expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(repo.expenses))
	}

	again := command(t, amqp.CmdSettleDueItem, map[string]any{"id": id})
	if err := d.Handle(ctx, again); err != nil {
		t.Fatalf("double settle is a state error and must be dropped, got %v", err)
	}
	if len(repo.expenses) != 1 {
		t.Fatal("double settle must not create another expense")
	}
}

func TestSetRateCommand(t *testing.T) {
	repo := newMemRepo()
	d := newDispatcher(repo)

	cmd := command(t, amqp.CmdSetRate, map[string]any{"rate": "1234.56"})
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if repo.settings[core.SettingCotizacionUSD] != "1234.56" {
		t.Fatalf("stored rate %q", repo.settings[core.SettingCotizacionUSD])
	}
}

func TestCreateIncomeCommandAutoSplit(t *testing.T) {
	repo := newMemRepo()
	repo.settings[core.SettingCotizacionUSD] = "1000"
	d := newDispatcher(repo)

	cmd := command(t, amqp.CmdCreateIncome, map[string]any{
		"description":    "factura 051",
		"currency":       "ARS",
		"total_amount":   "200000",
		"first_due_date": "2024-06-03",
		"split":          "auto",
	})
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	for _, rec := range repo.incomes {
		if len(rec.Installments) != 2 {
			t.Fatalf("expected 2 installments, got %d", len(rec.Installments))
		}
		if !rec.Snapshot.ConvertedAmount.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("USD equivalent %s, want 200", rec.Snapshot.ConvertedAmount)
		}
	}
}

func TestMalformedPayloadDropped(t *testing.T) {
	d := newDispatcher(newMemRepo())

	cmd := &amqp.Command{Op: amqp.CmdCreateDueItem, Payload: json.RawMessage(`{"amount": `)}
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("malformed payloads must be dropped, got %v", err)
	}
}

func TestUnknownOpDropped(t *testing.T) {
	d := newDispatcher(newMemRepo())

	cmd := &amqp.Command{Op: "compact_ledger", Payload: json.RawMessage(`{}`)}
	if err := d.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("unknown ops must be dropped, got %v", err)
	}
}

func TestInfrastructureFailureRequeues(t *testing.T) {
	repo := newMemRepo()
	repo.failing = core.ConsistencyError("database locked")
	d := newDispatcher(repo)

	cmd := command(t, amqp.CmdCreateDueItem, map[string]any{
		"description": "luz",
		"category":    "servicios",
		"currency":    "ARS",
		"amount":      "9000",
		"due_date":    "2024-06-18",
	})
	if err := d.Handle(context.Background(), cmd); err == nil {
		t.Fatal("storage failure must surface so the command is requeued")
	}
}
