package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCollection = "collection"
	FieldRecordID   = "record_id"
	FieldExpenseID  = "expense_id"
	FieldDueDate    = "due_date"
	FieldCategory   = "category"
	FieldCurrency   = "currency"
	FieldAmount     = "amount"
	FieldRate       = "rate"
	FieldMonthKey   = "month"
	FieldEventKind  = "event_kind"
	FieldIndex      = "index"
	FieldWrites     = "writes"
	FieldQueue      = "queue"
	FieldExchange   = "exchange"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentFeed    = "feed"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentLocal   = "local_store"
	ComponentRates   = "rates"
	ComponentSummary = "summary"
)

// Operations defines standard operation names.
const (
	OpCreate   = "create"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpSettle   = "settle"
	OpUnsettle = "unsettle"
	OpToggle   = "toggle_installment"
	OpSetRate  = "set_rate"
	OpApplyTx  = "apply_tx"
	OpPublish  = "publish"
	OpMirror   = "mirror"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
