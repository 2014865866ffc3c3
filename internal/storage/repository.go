// Package storage is the SQLite-backed record store. It is the one component
// that may apply a core.Transaction, and it applies it atomically: every
// write of the arena lands in a single SQL transaction or none do.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ApplyTx commits a ledger transaction atomically. On any failure the whole
// arena is rolled back and a consistency error is returned; nothing is
// partially applied and nothing is retried here.
func (r *SQLiteRepository) ApplyTx(ctx context.Context, tx core.Transaction) error {
	if tx.Empty() {
		return nil
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, w := range tx.Writes {
		if err := r.applyWrite(ctx, sqlTx, w); err != nil {
			return core.ConsistencyError("apply %s %s/%s: %v", w.Op, w.Collection, w.ID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return core.ConsistencyError("commit ledger transaction: %v", err)
	}

	slog.DebugContext(ctx, "Applied ledger transaction", "writes", len(tx.Writes))
	return nil
}

func (r *SQLiteRepository) applyWrite(ctx context.Context, tx *sql.Tx, w core.Write) error {
	if w.Op == core.OpDelete {
		table, err := tableFor(w.Collection)
		if err != nil {
			return err
		}
		key := "id"
		if w.Collection == core.CollectionCategories {
			key = "name"
		} else if w.Collection == core.CollectionSettings {
			key = "key"
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, key), w.ID)
		return err
	}

	switch w.Collection {
	case core.CollectionDueItems:
		item, ok := w.Record.(core.DueItem)
		if !ok {
			return fmt.Errorf("unexpected record type %T", w.Record)
		}
		return r.putDueItem(ctx, tx, item)
	case core.CollectionExpenses:
		e, ok := w.Record.(core.ExpenseRecord)
		if !ok {
			return fmt.Errorf("unexpected record type %T", w.Record)
		}
		return r.putExpense(ctx, tx, e)
	case core.CollectionIncomes:
		rec, ok := w.Record.(core.IncomeRecord)
		if !ok {
			return fmt.Errorf("unexpected record type %T", w.Record)
		}
		return r.putIncome(ctx, tx, rec)
	case core.CollectionCategories:
		b, ok := w.Record.(core.CategoryBudget)
		if !ok {
			return fmt.Errorf("unexpected record type %T", w.Record)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, budgeted_amount) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET budgeted_amount = excluded.budgeted_amount`,
			b.Name, b.Budgeted.String())
		return err
	case core.CollectionSettings:
		value, ok := w.Record.(string)
		if !ok {
			return fmt.Errorf("unexpected record type %T", w.Record)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			w.ID, value)
		return err
	default:
		return fmt.Errorf("unknown collection %s", w.Collection)
	}
}

func tableFor(collection string) (string, error) {
	switch collection {
	case core.CollectionDueItems, core.CollectionExpenses, core.CollectionIncomes,
		core.CollectionCategories, core.CollectionSettings:
		return collection, nil
	default:
		return "", fmt.Errorf("unknown collection %s", collection)
	}
}

func (r *SQLiteRepository) putDueItem(ctx context.Context, tx *sql.Tx, item core.DueItem) error {
	snapshot, err := marshalSnapshot(item.Snapshot)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO due_items
			(id, description, category, amount_ars, amount_usd, snapshot,
			 due_date, recurring, settled, linked_expense_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			amount_ars = excluded.amount_ars,
			amount_usd = excluded.amount_usd,
			snapshot = excluded.snapshot,
			due_date = excluded.due_date,
			recurring = excluded.recurring,
			settled = excluded.settled,
			linked_expense_id = excluded.linked_expense_id,
			updated_at = datetime('now')`,
		item.ID, item.Description, item.Category,
		decimalOrNull(item.Amount.ARS), decimalOrNull(item.Amount.USD), snapshot,
		item.DueDate.String(), boolInt(item.Recurring), boolInt(item.Settled),
		nullIfEmpty(item.LinkedExpenseID))
	return err
}

func (r *SQLiteRepository) putExpense(ctx context.Context, tx *sql.Tx, e core.ExpenseRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO expenses
			(id, category, description, amount_ars, amount_usd, payment_method, date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			description = excluded.description,
			amount_ars = excluded.amount_ars,
			amount_usd = excluded.amount_usd,
			payment_method = excluded.payment_method,
			date = excluded.date,
			updated_at = datetime('now')`,
		e.ID, e.Category, e.Description,
		decimalOrNull(e.Amount.ARS), decimalOrNull(e.Amount.USD),
		e.PaymentMethod, e.Date.String())
	return err
}

func (r *SQLiteRepository) putIncome(ctx context.Context, tx *sql.Tx, rec core.IncomeRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return err
	}
	installments, err := json.Marshal(rec.Installments)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO income_records
			(id, description, currency, total_amount, snapshot, split,
			 installments, amount_received, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			currency = excluded.currency,
			total_amount = excluded.total_amount,
			snapshot = excluded.snapshot,
			split = excluded.split,
			installments = excluded.installments,
			amount_received = excluded.amount_received,
			updated_at = datetime('now')`,
		rec.ID, rec.Description, string(rec.Currency), rec.TotalAmount.String(),
		string(snapshot), string(rec.Split), string(installments),
		rec.AmountReceived.String())
	return err
}

// GetDueItem loads one due item by id.
func (r *SQLiteRepository) GetDueItem(ctx context.Context, id string) (core.DueItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, description, category, amount_ars, amount_usd, snapshot,
		       due_date, recurring, settled, linked_expense_id
		FROM due_items WHERE id = ?`, id)
	item, err := scanDueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DueItem{}, fmt.Errorf("due item %s: %w", id, core.ErrNotFound)
	}
	return item, err
}

// ListDueItems returns every due item ordered by due date.
func (r *SQLiteRepository) ListDueItems(ctx context.Context) ([]core.DueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, category, amount_ars, amount_usd, snapshot,
		       due_date, recurring, settled, linked_expense_id
		FROM due_items ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}
	defer rows.Close()

	var items []core.DueItem
	for rows.Next() {
		item, err := scanDueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetIncome loads one income record by id.
func (r *SQLiteRepository) GetIncome(ctx context.Context, id string) (core.IncomeRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, description, currency, total_amount, snapshot, split,
		       installments, amount_received
		FROM income_records WHERE id = ?`, id)
	rec, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IncomeRecord{}, fmt.Errorf("income %s: %w", id, core.ErrNotFound)
	}
	return rec, err
}

// ListIncomes returns every income record.
func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.IncomeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, currency, total_amount, snapshot, split,
		       installments, amount_received
		FROM income_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var recs []core.IncomeRecord
	for rows.Next() {
		rec, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// GetExpense loads one expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category, description, amount_ars, amount_usd, payment_method, date
		FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return e, err
}

// ListExpenses returns the expenses of one calendar month.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, year int, month int) ([]core.ExpenseRecord, error) {
	key := fmt.Sprintf("%04d-%02d", year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, description, amount_ars, amount_usd, payment_method, date
		FROM expenses WHERE strftime('%Y-%m', date) = ? ORDER BY date, id`, key)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.ExpenseRecord
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ListBudgets returns every category budget.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, budgeted_amount FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.CategoryBudget
	for rows.Next() {
		var b core.CategoryBudget
		var budgeted string
		if err := rows.Scan(&b.Name, &budgeted); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		amount, err := decimal.NewFromString(budgeted)
		if err != nil {
			return nil, fmt.Errorf("parse budget for %s: %w", b.Name, err)
		}
		b.Budgeted = amount
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// GetSetting reads a settings value; ok is false when the key is absent.
func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDueItem(row rowScanner) (core.DueItem, error) {
	var (
		item                 core.DueItem
		ars, usd             sql.NullString
		snapshot, expenseRef sql.NullString
		dueDate              string
		recurring, settled   int
	)
	if err := row.Scan(&item.ID, &item.Description, &item.Category, &ars, &usd,
		&snapshot, &dueDate, &recurring, &settled, &expenseRef); err != nil {
		return core.DueItem{}, fmt.Errorf("scan due item: %w", err)
	}

	amount, err := amountFromColumns(ars, usd)
	if err != nil {
		return core.DueItem{}, err
	}
	item.Amount = amount

	if snapshot.Valid && snapshot.String != "" {
		var snap core.ConversionSnapshot
		if err := json.Unmarshal([]byte(snapshot.String), &snap); err != nil {
			return core.DueItem{}, fmt.Errorf("decode snapshot: %w", err)
		}
		item.Snapshot = &snap
	}

	date, err := core.ParseDate(dueDate)
	if err != nil {
		return core.DueItem{}, fmt.Errorf("parse due date %q: %w", dueDate, err)
	}
	item.DueDate = date
	item.Recurring = recurring != 0
	item.Settled = settled != 0
	if expenseRef.Valid {
		item.LinkedExpenseID = expenseRef.String
	}
	return item, nil
}

func scanExpense(row rowScanner) (core.ExpenseRecord, error) {
	var (
		e        core.ExpenseRecord
		ars, usd sql.NullString
		date     string
	)
	if err := row.Scan(&e.ID, &e.Category, &e.Description, &ars, &usd, &e.PaymentMethod, &date); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("scan expense: %w", err)
	}
	amount, err := amountFromColumns(ars, usd)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	e.Amount = amount
	d, err := core.ParseDate(date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = d
	return e, nil
}

func scanIncome(row rowScanner) (core.IncomeRecord, error) {
	var (
		rec                    core.IncomeRecord
		currency, total        string
		snapshot, installments string
		split, received        string
	)
	if err := row.Scan(&rec.ID, &rec.Description, &currency, &total, &snapshot,
		&split, &installments, &received); err != nil {
		return core.IncomeRecord{}, fmt.Errorf("scan income: %w", err)
	}

	rec.Currency = core.Currency(currency)
	rec.Split = core.SplitMode(split)

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("parse total amount: %w", err)
	}
	rec.TotalAmount = amount

	got, err := decimal.NewFromString(received)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("parse amount received: %w", err)
	}
	rec.AmountReceived = got

	if err := json.Unmarshal([]byte(snapshot), &rec.Snapshot); err != nil {
		return core.IncomeRecord{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(installments), &rec.Installments); err != nil {
		return core.IncomeRecord{}, fmt.Errorf("decode installments: %w", err)
	}
	return rec, nil
}

func amountFromColumns(ars, usd sql.NullString) (core.MoneyAmount, error) {
	var amount core.MoneyAmount
	if ars.Valid && ars.String != "" {
		v, err := decimal.NewFromString(ars.String)
		if err != nil {
			return core.MoneyAmount{}, fmt.Errorf("parse ARS amount: %w", err)
		}
		amount.ARS = &v
	}
	if usd.Valid && usd.String != "" {
		v, err := decimal.NewFromString(usd.String)
		if err != nil {
			return core.MoneyAmount{}, fmt.Errorf("parse USD amount: %w", err)
		}
		amount.USD = &v
	}
	return amount, nil
}

func marshalSnapshot(snap *core.ConversionSnapshot) (any, error) {
	if snap == nil {
		return nil, nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

func decimalOrNull(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
