package domain

// RecordCreated describes a newly booked ledger record
type RecordCreated struct {
	RecordID      uint
	ParentID      *uint
	Kind          Kind
	State         LedgerState
	TransactionID string
	OrderID       uint
	Linked        bool
	Currency      string
	Amount        string
	PaymentKey    string
	Recurring     bool
}
