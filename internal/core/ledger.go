package core

// Collection names mirror the document store layout. Every write intent is
// keyed by collection and record id.
const (
	CollectionDueItems   = "due_items"
	CollectionExpenses   = "expenses"
	CollectionIncomes    = "income_records"
	CollectionCategories = "categories"
	CollectionSettings   = "settings"
)

// SettingCotizacionUSD is the settings key holding the operator-entered
// ARS-per-USD rate used for conversion snapshots.
const SettingCotizacionUSD = "cotizacion_usd"

// Op is the kind of a write intent.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Write is one pending write in a ledger transaction: a full-record put or a
// deletion, keyed by collection and id.
type Write struct {
	Op         Op
	Collection string
	ID         string
	Record     any // nil for deletes
}

// Transaction is an ordered arena of write intents that must be committed
// together. The engine never touches storage itself; it returns a Transaction
// and the storage collaborator applies all of it atomically or none of it.
// A partially applied transaction is a consistency error, never silently
// retried (retrying with side effects re-applied would duplicate expenses).
type Transaction struct {
	Writes []Write
}

// Put appends a full-record write intent.
func (tx *Transaction) Put(collection, id string, record any) {
	tx.Writes = append(tx.Writes, Write{Op: OpPut, Collection: collection, ID: id, Record: record})
}

// Delete appends a deletion intent.
func (tx *Transaction) Delete(collection, id string) {
	tx.Writes = append(tx.Writes, Write{Op: OpDelete, Collection: collection, ID: id})
}

// Empty reports whether the transaction carries no writes.
func (tx Transaction) Empty() bool { return len(tx.Writes) == 0 }
