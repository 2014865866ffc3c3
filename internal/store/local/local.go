// Package local is the client-local key-value cache store: one JSON file per
// collection, records keyed by string id. It is the offline-first fallback a
// subset of record types can be served from when the live store is not
// reachable, and the feed worker's mirror target.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"finanzas/internal/core"
)

type Store struct {
	mu   sync.Mutex
	base string
	// collection -> id -> raw record
	data map[string]map[string]json.RawMessage
}

// Open loads (or initializes) a local store rooted at base. Missing or
// unreadable collection files start empty; the cache is best-effort by
// design.
func Open(base string) (*Store, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("create local store directory: %w", err)
	}
	s := &Store{base: base, data: make(map[string]map[string]json.RawMessage)}
	for _, collection := range []string{
		core.CollectionDueItems, core.CollectionExpenses, core.CollectionIncomes,
		core.CollectionCategories, core.CollectionSettings,
	} {
		s.data[collection] = readCollection(s.path(collection))
	}
	return s, nil
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.base, collection+".json")
}

func readCollection(path string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	b, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return make(map[string]json.RawMessage)
	}
	return out
}

// flush must be called with the mutex held.
func (s *Store) flush(collection string) error {
	b, err := json.MarshalIndent(s.data[collection], "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	tmp := s.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	return os.Rename(tmp, s.path(collection))
}

// Put stores one record, JSON-serialized, and persists the collection file.
func (s *Store) Put(collection, id string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s/%s: %w", collection, id, err)
	}
	return s.PutRaw(collection, id, raw)
}

// PutRaw stores an already-serialized record (what the change feed carries).
func (s *Store) PutRaw(collection, id string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]json.RawMessage)
	}
	s.data[collection][id] = raw
	return s.flush(collection)
}

// Delete removes a record; deleting an absent key is a no-op.
func (s *Store) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[collection][id]; !ok {
		return nil
	}
	delete(s.data[collection], id)
	return s.flush(collection)
}

// Get decodes one record into out; ok is false when the key is absent.
func (s *Store) Get(collection, id string, out any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[collection][id]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode record %s/%s: %w", collection, id, err)
	}
	return true, nil
}

// ListExpenses implements store.ExpenseSource over the cached expenses.
// Records that fail to decode are skipped, not errors; a stale cache entry
// must not break the aggregation.
func (s *Store) ListExpenses(_ context.Context, year int, month int) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.ExpenseRecord
	for _, raw := range s.data[core.CollectionExpenses] {
		var e core.ExpenseRecord
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if e.Date.IsZero() || e.Date.Year() != year || int(e.Date.Month()) != month {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListDueItems implements store.DueItemSource over the cached due items,
// ordered by due date.
func (s *Store) ListDueItems(_ context.Context) ([]core.DueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.DueItem
	for _, raw := range s.data[core.CollectionDueItems] {
		var item core.DueItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate == out[j].DueDate {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

// ListBudgets implements store.BudgetSource over the cached categories.
func (s *Store) ListBudgets(_ context.Context) ([]core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.CategoryBudget
	for _, raw := range s.data[core.CollectionCategories] {
		var b core.CategoryBudget
		if err := json.Unmarshal(raw, &b); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
