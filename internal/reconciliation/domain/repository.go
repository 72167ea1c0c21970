package domain

import "context"

// LedgerStore persists payment records and their order linkage
type LedgerStore interface {
	CreateRecord(ctx context.Context, record *PaymentRecord) error
	FindRecordByID(ctx context.Context, id uint) (*PaymentRecord, error)
	// FindRecordsByProperty returns matching records ordered by id, oldest first
	FindRecordsByProperty(ctx context.Context, typeID PropertyType, value string) ([]PaymentRecord, error)
	LinkRecordToOrder(ctx context.Context, record *PaymentRecord, orderID uint) error
	// FindOrderIDByRecord returns ErrOrderNotFound when the record is unlinked
	FindOrderIDByRecord(ctx context.Context, recordID uint) (uint, error)
	UpdatePropertyValue(ctx context.Context, recordID uint, typeID PropertyType, value string) error
}

// MethodRegistry lists the payment methods registered for a plugin namespace
type MethodRegistry interface {
	ListMethodsForPlugin(ctx context.Context, namespace string) ([]PaymentMethod, error)
}

// OrderStore reads orders
type OrderStore interface {
	FindOrderByID(ctx context.Context, id uint) (*Order, error)
}

// CountryLookup resolves ISO country codes to reference data
type CountryLookup interface {
	FindCountryByISOCode(ctx context.Context, code string, kind ISOCodeKind) (*Country, error)
}

// ResultCategory is the coarse outcome of a gateway result code
type ResultCategory string

// Result categories
const (
	ResultACK   ResultCategory = "ACK"
	ResultNOK   ResultCategory = "NOK"
	ResultOther ResultCategory = "OTHER"
)

// Classification is the classifier verdict for a gateway result code
type Classification struct {
	Category             ResultCategory
	SuccessPendingReview bool
}

// ResultClassifier classifies gateway result codes
type ResultClassifier interface {
	Classify(resultCode string) Classification
}

// RecordPublisher announces ledger records to downstream consumers
type RecordPublisher interface {
	PublishRecordCreated(ctx context.Context, event RecordCreated) error
}
