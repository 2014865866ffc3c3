package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

type fakeMirror struct {
	records map[string]json.RawMessage
	failing bool
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{records: make(map[string]json.RawMessage)}
}

func (m *fakeMirror) PutRaw(collection, id string, raw json.RawMessage) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.records[collection+"/"+id] = raw
	return nil
}

func (m *fakeMirror) Delete(collection, id string) error {
	delete(m.records, collection+"/"+id)
	return nil
}

type fakeAppender struct {
	appended []core.ExpenseRecord
	failing  bool
}

func (a *fakeAppender) AppendExpense(_ context.Context, e core.ExpenseRecord) (string, error) {
	if a.failing {
		return "", errors.New("sheets unavailable")
	}
	a.appended = append(a.appended, e)
	return "A7", nil
}

func expenseEvent(t *testing.T, kind amqp.EventKind) *amqp.RecordEvent {
	t.Helper()
	expense := core.ExpenseRecord{
		ID:       "exp-1",
		Category: "comida",
		Amount:   core.ARSAmount(decimal.NewFromInt(150)),
		Date:     core.NewDate(2024, 6, 10),
	}
	event, err := amqp.NewRecordEvent(core.CollectionExpenses, kind, expense.ID, expense)
	if err != nil {
		t.Fatalf("NewRecordEvent: %v", err)
	}
	return &event
}

func TestAddedExpenseMirroredAndExported(t *testing.T) {
	mirror := newFakeMirror()
	appender := &fakeAppender{}
	w := NewFeedWorker(mirror, appender, testLogger())

	if err := w.HandleRecordEvent(context.Background(), expenseEvent(t, amqp.EventAdded)); err != nil {
		t.Fatalf("HandleRecordEvent: %v", err)
	}
	if _, ok := mirror.records["expenses/exp-1"]; !ok {
		t.Fatal("expense not mirrored")
	}
	if len(appender.appended) != 1 {
		t.Fatalf("expected 1 export, got %d", len(appender.appended))
	}
	if appender.appended[0].Category != "comida" {
		t.Fatalf("exported category %q", appender.appended[0].Category)
	}
}

func TestChangedEventNotExported(t *testing.T) {
	mirror := newFakeMirror()
	appender := &fakeAppender{}
	w := NewFeedWorker(mirror, appender, testLogger())

	if err := w.HandleRecordEvent(context.Background(), expenseEvent(t, amqp.EventChanged)); err != nil {
		t.Fatalf("HandleRecordEvent: %v", err)
	}
	if len(appender.appended) != 0 {
		t.Fatal("changed events must not be exported")
	}
}

func TestRemovedEventDeletesFromMirror(t *testing.T) {
	mirror := newFakeMirror()
	w := NewFeedWorker(mirror, nil, testLogger())
	ctx := context.Background()

	if err := w.HandleRecordEvent(ctx, expenseEvent(t, amqp.EventAdded)); err != nil {
		t.Fatalf("add: %v", err)
	}
	removal, err := amqp.NewRecordEvent(core.CollectionExpenses, amqp.EventRemoved, "exp-1", nil)
	if err != nil {
		t.Fatalf("NewRecordEvent: %v", err)
	}
	if err := w.HandleRecordEvent(ctx, &removal); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := mirror.records["expenses/exp-1"]; ok {
		t.Fatal("removed record still in mirror")
	}
}

func TestMirrorFailureRequeues(t *testing.T) {
	mirror := newFakeMirror()
	mirror.failing = true
	w := NewFeedWorker(mirror, nil, testLogger())

	if err := w.HandleRecordEvent(context.Background(), expenseEvent(t, amqp.EventAdded)); err == nil {
		t.Fatal("mirror failure must surface so the event is requeued")
	}
}

func TestExportFailureRequeues(t *testing.T) {
	w := NewFeedWorker(newFakeMirror(), &fakeAppender{failing: true}, testLogger())

	if err := w.HandleRecordEvent(context.Background(), expenseEvent(t, amqp.EventAdded)); err == nil {
		t.Fatal("export failure must surface so the event is requeued")
	}
}

func TestUnknownKindDropped(t *testing.T) {
	w := NewFeedWorker(newFakeMirror(), nil, testLogger())

	event := &amqp.RecordEvent{Collection: core.CollectionExpenses, Kind: "archived", ID: "exp-9"}
	if err := w.HandleRecordEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown kinds must be dropped, got %v", err)
	}
}

func TestNonExpenseCollectionOnlyMirrored(t *testing.T) {
	mirror := newFakeMirror()
	appender := &fakeAppender{}
	w := NewFeedWorker(mirror, appender, testLogger())

	item := core.DueItem{ID: "due-1", Category: "vivienda"}
	event, err := amqp.NewRecordEvent(core.CollectionDueItems, amqp.EventAdded, item.ID, item)
	if err != nil {
		t.Fatalf("NewRecordEvent: %v", err)
	}
	if err := w.HandleRecordEvent(context.Background(), &event); err != nil {
		t.Fatalf("HandleRecordEvent: %v", err)
	}
	if _, ok := mirror.records["due_items/due-1"]; !ok {
		t.Fatal("due item not mirrored")
	}
	if len(appender.appended) != 0 {
		t.Fatal("due items must never reach the export")
	}
}
