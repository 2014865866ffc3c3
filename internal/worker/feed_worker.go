// Package worker consumes the record-event feed and keeps the offline
// mirror and the spreadsheet export in step with the ledger.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/store"
)

// Mirror is the write surface of the client-local record cache. Raw
// snapshots land as-is so the mirror never lags behind schema changes
// in the records themselves.
type Mirror interface {
	PutRaw(collection, id string, raw json.RawMessage) error
	Delete(collection, id string) error
}

// FeedWorker applies record events in arrival order. Mirroring is
// mandatory; the sheets export is optional and only sees expense
// additions. A handler error is returned to the consumer, which
// requeues the event, so both sinks see it again.
type FeedWorker struct {
	mirror Mirror
	sheets store.ExpenseAppender // nil disables the export
	logger *log.Logger
}

func NewFeedWorker(mirror Mirror, sheets store.ExpenseAppender, logger *log.Logger) *FeedWorker {
	return &FeedWorker{
		mirror: mirror,
		sheets: sheets,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordEvent mirrors one event and, for added expenses, appends
// the row to the spreadsheet.
func (w *FeedWorker) HandleRecordEvent(ctx context.Context, event *amqp.RecordEvent) error {
	switch event.Kind {
	case amqp.EventAdded, amqp.EventChanged:
		if err := w.mirror.PutRaw(event.Collection, event.ID, event.Record); err != nil {
			return fmt.Errorf("mirroring %s/%s: %w", event.Collection, event.ID, err)
		}
	case amqp.EventRemoved:
		if err := w.mirror.Delete(event.Collection, event.ID); err != nil {
			return fmt.Errorf("removing %s/%s from mirror: %w", event.Collection, event.ID, err)
		}
	default:
		// Unknown kinds are dropped, not requeued: a newer daemon may
		// emit kinds this worker does not know yet.
		w.logger.Warn("skipping record event of unknown kind",
			log.FieldEventKind, string(event.Kind),
			log.FieldCollection, event.Collection,
			log.FieldRecordID, event.ID)
		return nil
	}

	w.logger.Debug("record event mirrored",
		log.FieldOperation, log.OpMirror,
		log.FieldCollection, event.Collection,
		log.FieldEventKind, string(event.Kind),
		log.FieldRecordID, event.ID)

	if w.sheets != nil && event.Collection == core.CollectionExpenses && event.Kind == amqp.EventAdded {
		return w.exportExpense(ctx, event)
	}
	return nil
}

func (w *FeedWorker) exportExpense(ctx context.Context, event *amqp.RecordEvent) error {
	var expense core.ExpenseRecord
	if err := json.Unmarshal(event.Record, &expense); err != nil {
		// A snapshot that does not decode will never decode; log and
		// move on instead of requeueing forever.
		w.logger.Error("undecodable expense snapshot, skipping export",
			log.FieldError, err,
			log.FieldRecordID, event.ID)
		return nil
	}

	ref, err := w.sheets.AppendExpense(ctx, expense)
	if err != nil {
		return fmt.Errorf("exporting expense %s: %w", event.ID, err)
	}

	w.logger.Info("expense exported",
		log.FieldOperation, log.OpExport,
		log.FieldRecordID, event.ID,
		"row_ref", ref)
	return nil
}
