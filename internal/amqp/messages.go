package amqp

import (
	"encoding/json"
	"time"
)

// EventKind mirrors the change notifications a document store subscription
// pushes: a record was added, changed or removed.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventChanged EventKind = "changed"
	EventRemoved EventKind = "removed"
)

// RecordEvent is one entry of the per-collection change feed. Record holds
// the full JSON snapshot of the record for added/changed events and is empty
// for removed events.
type RecordEvent struct {
	Collection string          `json:"collection"`
	Kind       EventKind       `json:"kind"`
	ID         string          `json:"id"`
	Record     json.RawMessage `json:"record,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewRecordEvent builds a feed event, marshaling the record snapshot. record
// may be nil for removals.
func NewRecordEvent(collection string, kind EventKind, id string, record any) (RecordEvent, error) {
	ev := RecordEvent{
		Collection: collection,
		Kind:       kind,
		ID:         id,
		Timestamp:  time.Now(),
	}
	if record != nil {
		body, err := json.Marshal(record)
		if err != nil {
			return RecordEvent{}, err
		}
		ev.Record = body
	}
	return ev, nil
}

// Command ops accepted by the ledger daemon.
const (
	CmdCreateDueItem     = "create_due_item"
	CmdEditDueItem       = "edit_due_item"
	CmdDeleteDueItem     = "delete_due_item"
	CmdSettleDueItem     = "settle_due_item"
	CmdUnsettleDueItem   = "unsettle_due_item"
	CmdCreateIncome      = "create_income"
	CmdEditIncome        = "edit_income"
	CmdDeleteIncome      = "delete_income"
	CmdToggleInstallment = "toggle_installment"
	CmdCreateExpense     = "create_expense"
	CmdSetRate           = "set_rate"
)

// Command is a mutation request submitted by a UI collaborator. Payload is an
// op-specific JSON document with already-validated primitive fields; the
// engine re-validates everything anyway.
type Command struct {
	Op        string          `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func (c *Command) ToJSON() ([]byte, error)     { return json.Marshal(c) }
func (e *RecordEvent) ToJSON() ([]byte, error) { return json.Marshal(e) }

func CommandFromJSON(b []byte) (*Command, error) {
	var c Command
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func RecordEventFromJSON(b []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
