package amqp

import (
	"encoding/json"
	"testing"
)

func TestRecordEventJSON(t *testing.T) {
	ev, err := NewRecordEvent("due_items", EventChanged, "abc", map[string]any{"settled": true})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := RecordEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Collection != "due_items" || back.Kind != EventChanged || back.ID != "abc" {
		t.Fatalf("unexpected event %+v", back)
	}
	var payload map[string]any
	if err := json.Unmarshal(back.Record, &payload); err != nil || payload["settled"] != true {
		t.Fatalf("record snapshot lost: %v %v", payload, err)
	}
}

func TestRecordEventRemovalHasNoSnapshot(t *testing.T) {
	ev, err := NewRecordEvent("expenses", EventRemoved, "abc", nil)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if len(ev.Record) != 0 {
		t.Fatalf("removal events must not carry a snapshot")
	}
}

func TestCommandFromJSONRejectsGarbage(t *testing.T) {
	if _, err := CommandFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed command")
	}
}
