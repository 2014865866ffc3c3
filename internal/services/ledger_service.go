package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

// Repository is the storage surface the ledger needs. ApplyTx must be
// atomic: either every write in the transaction lands or none do.
type Repository interface {
	ApplyTx(ctx context.Context, tx core.Transaction) error
	GetDueItem(ctx context.Context, id string) (core.DueItem, error)
	GetIncome(ctx context.Context, id string) (core.IncomeRecord, error)
	GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
}

// FeedPublisher pushes record events to downstream mirrors.
type FeedPublisher interface {
	PublishRecordEvent(ctx context.Context, event amqp.RecordEvent) error
}

// LedgerService runs every mutating operation: it loads the record,
// applies the engine rules, commits the resulting transaction and then
// emits one record event per affected record. A publish failure after
// commit is logged and dropped; the mirrors catch up on later events.
type LedgerService struct {
	repo   Repository
	feed   FeedPublisher
	logger *log.Logger
}

func NewLedgerService(repo Repository, feed FeedPublisher, logger *log.Logger) *LedgerService {
	return &LedgerService{
		repo:   repo,
		feed:   feed,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// CreateDueItemParams carries the fields of a new obligation.
type CreateDueItemParams struct {
	Description string
	Category    string
	Amount      core.MoneyAmount
	Snapshot    *core.ConversionSnapshot
	DueDate     core.Date
	Recurring   bool
}

func (s *LedgerService) CreateDueItem(ctx context.Context, p CreateDueItemParams) (core.DueItem, error) {
	item, err := core.NewDueItem(p.Description, p.Category, p.Amount, p.Snapshot, p.DueDate, p.Recurring)
	if err != nil {
		return core.DueItem{}, err
	}

	var tx core.Transaction
	tx.Put(core.CollectionDueItems, item.ID, item)
	if err := s.commit(ctx, tx); err != nil {
		return core.DueItem{}, err
	}

	s.emit(ctx, core.CollectionDueItems, amqp.EventAdded, item.ID, item)
	s.logger.Info("due item created",
		log.FieldOperation, log.OpCreate,
		log.FieldRecordID, item.ID,
		log.FieldDueDate, item.DueDate.String())
	return item, nil
}

func (s *LedgerService) EditDueItem(ctx context.Context, id string, patch core.DueItemPatch) (core.DueItem, error) {
	item, err := s.repo.GetDueItem(ctx, id)
	if err != nil {
		return core.DueItem{}, err
	}
	edited, err := item.Edit(patch)
	if err != nil {
		return core.DueItem{}, err
	}

	var tx core.Transaction
	tx.Put(core.CollectionDueItems, edited.ID, edited)
	if err := s.commit(ctx, tx); err != nil {
		return core.DueItem{}, err
	}

	s.emit(ctx, core.CollectionDueItems, amqp.EventChanged, edited.ID, edited)
	return edited, nil
}

// DeleteDueItem removes the obligation. An expense already materialized
// by a past settlement stays in the ledger.
func (s *LedgerService) DeleteDueItem(ctx context.Context, id string) error {
	if _, err := s.repo.GetDueItem(ctx, id); err != nil {
		return err
	}

	var tx core.Transaction
	tx.Delete(core.CollectionDueItems, id)
	if err := s.commit(ctx, tx); err != nil {
		return err
	}

	s.emit(ctx, core.CollectionDueItems, amqp.EventRemoved, id, nil)
	return nil
}

func (s *LedgerService) SettleDueItem(ctx context.Context, id, paymentMethod string) (core.SettleResult, error) {
	item, err := s.repo.GetDueItem(ctx, id)
	if err != nil {
		return core.SettleResult{}, err
	}
	res, err := item.Settle(paymentMethod)
	if err != nil {
		return core.SettleResult{}, err
	}
	if err := s.commit(ctx, res.Tx); err != nil {
		return core.SettleResult{}, err
	}

	s.emit(ctx, core.CollectionExpenses, amqp.EventAdded, res.Expense.ID, res.Expense)
	s.emit(ctx, core.CollectionDueItems, amqp.EventChanged, res.Item.ID, res.Item)
	if res.Successor != nil {
		s.emit(ctx, core.CollectionDueItems, amqp.EventAdded, res.Successor.ID, *res.Successor)
	}

	s.logger.Info("due item settled",
		log.FieldOperation, log.OpSettle,
		log.FieldRecordID, res.Item.ID,
		log.FieldExpenseID, res.Expense.ID,
		log.FieldWrites, len(res.Tx.Writes))
	return res, nil
}

func (s *LedgerService) UnsettleDueItem(ctx context.Context, id string) (core.UnsettleResult, error) {
	item, err := s.repo.GetDueItem(ctx, id)
	if err != nil {
		return core.UnsettleResult{}, err
	}
	res, err := item.Unsettle()
	if err != nil {
		return core.UnsettleResult{}, err
	}
	if err := s.commit(ctx, res.Tx); err != nil {
		return core.UnsettleResult{}, err
	}

	s.emit(ctx, core.CollectionDueItems, amqp.EventChanged, res.Item.ID, res.Item)
	s.emit(ctx, core.CollectionExpenses, amqp.EventRemoved, res.ExpenseToDelete, nil)

	s.logger.Info("due item unsettled",
		log.FieldOperation, log.OpUnsettle,
		log.FieldRecordID, res.Item.ID,
		log.FieldExpenseID, res.ExpenseToDelete)
	return res, nil
}

// CreateIncomeParams carries the fields of a new income record.
type CreateIncomeParams struct {
	Description  string
	Currency     core.Currency
	Total        decimal.Decimal
	Snapshot     core.ConversionSnapshot
	FirstDueDate core.Date
	Split        core.SplitMode
	Manual       *core.ManualSplit
}

func (s *LedgerService) CreateIncome(ctx context.Context, p CreateIncomeParams) (core.IncomeRecord, error) {
	rec, err := core.NewIncome(p.Description, p.Currency, p.Total, p.Snapshot, p.FirstDueDate, p.Split, p.Manual)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	var tx core.Transaction
	tx.Put(core.CollectionIncomes, rec.ID, rec)
	if err := s.commit(ctx, tx); err != nil {
		return core.IncomeRecord{}, err
	}

	s.emit(ctx, core.CollectionIncomes, amqp.EventAdded, rec.ID, rec)
	s.logger.Info("income created",
		log.FieldOperation, log.OpCreate,
		log.FieldRecordID, rec.ID,
		log.FieldCurrency, string(rec.Currency))
	return rec, nil
}

func (s *LedgerService) EditIncome(ctx context.Context, id string, patch core.IncomePatch) (core.IncomeRecord, error) {
	rec, err := s.repo.GetIncome(ctx, id)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	edited, err := core.EditIncome(rec, patch)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	var tx core.Transaction
	tx.Put(core.CollectionIncomes, edited.ID, edited)
	if err := s.commit(ctx, tx); err != nil {
		return core.IncomeRecord{}, err
	}

	s.emit(ctx, core.CollectionIncomes, amqp.EventChanged, edited.ID, edited)
	return edited, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id string) error {
	if _, err := s.repo.GetIncome(ctx, id); err != nil {
		return err
	}

	var tx core.Transaction
	tx.Delete(core.CollectionIncomes, id)
	if err := s.commit(ctx, tx); err != nil {
		return err
	}

	s.emit(ctx, core.CollectionIncomes, amqp.EventRemoved, id, nil)
	return nil
}

func (s *LedgerService) ToggleInstallment(ctx context.Context, id string, index int) (core.IncomeRecord, error) {
	rec, err := s.repo.GetIncome(ctx, id)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	toggled, err := core.ToggleInstallmentReceived(rec, index)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	var tx core.Transaction
	tx.Put(core.CollectionIncomes, toggled.ID, toggled)
	if err := s.commit(ctx, tx); err != nil {
		return core.IncomeRecord{}, err
	}

	s.emit(ctx, core.CollectionIncomes, amqp.EventChanged, toggled.ID, toggled)
	s.logger.Info("installment toggled",
		log.FieldOperation, log.OpToggle,
		log.FieldRecordID, toggled.ID,
		log.FieldIndex, index)
	return toggled, nil
}

// CreateExpenseParams carries the fields of a directly entered expense,
// one that does not come from settling an obligation.
type CreateExpenseParams struct {
	Category      string
	Description   string
	Amount        core.MoneyAmount
	PaymentMethod string
	Date          core.Date
}

func (s *LedgerService) CreateExpense(ctx context.Context, p CreateExpenseParams) (core.ExpenseRecord, error) {
	rec, err := core.NewExpense(p.Category, p.Description, p.Amount, p.PaymentMethod, p.Date)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	var tx core.Transaction
	tx.Put(core.CollectionExpenses, rec.ID, rec)
	if err := s.commit(ctx, tx); err != nil {
		return core.ExpenseRecord{}, err
	}

	s.emit(ctx, core.CollectionExpenses, amqp.EventAdded, rec.ID, rec)
	s.logger.Info("expense created",
		log.FieldOperation, log.OpCreate,
		log.FieldRecordID, rec.ID,
		log.FieldCategory, rec.Category)
	return rec, nil
}

func (s *LedgerService) commit(ctx context.Context, tx core.Transaction) error {
	if err := s.repo.ApplyTx(ctx, tx); err != nil {
		return fmt.Errorf("applying transaction: %w", err)
	}
	return nil
}

// emit publishes one record event. The transaction is already committed
// at this point, so failures are logged and dropped rather than
// surfaced to the caller.
func (s *LedgerService) emit(ctx context.Context, collection string, kind amqp.EventKind, id string, record any) {
	if s.feed == nil {
		return
	}
	event, err := amqp.NewRecordEvent(collection, kind, id, record)
	if err != nil {
		s.logger.Error("building record event",
			log.FieldError, err,
			log.FieldCollection, collection,
			log.FieldRecordID, id)
		return
	}
	if err := s.feed.PublishRecordEvent(ctx, event); err != nil {
		s.logger.Error("publishing record event",
			log.FieldError, err,
			log.FieldCollection, collection,
			log.FieldEventKind, string(kind),
			log.FieldRecordID, id)
	}
}
