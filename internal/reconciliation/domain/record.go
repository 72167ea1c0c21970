package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind distinguishes incoming money from money returned to the customer
type Kind string

// Record kinds
const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// TransactionTypeBookedPosting marks records that are final postings on the ledger
const TransactionTypeBookedPosting = "booked_posting"

// OriginPlugin is the Origin property value for records created by this service
const OriginPlugin = "plugin"

// PropertyType identifies the meaning of a PaymentProperty
type PropertyType int

// Property types
const (
	PropertyTransactionID             PropertyType = 1
	PropertyReferenceID               PropertyType = 2
	PropertyBookingText               PropertyType = 3
	PropertyOrigin                    PropertyType = 4
	PropertyExternalTransactionStatus PropertyType = 5
)

// PaymentRecord is a ledger entry. Once persisted it is never rewritten except
// for property refreshes; refunds book a new linked debit record instead.
type PaymentRecord struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	MethodID        uint              `json:"method_id" gorm:"not null;default:0;index"`
	ParentID        *uint             `json:"parent_id,omitempty" gorm:"index"`
	Kind            Kind              `json:"kind" gorm:"type:varchar(16);not null"`
	TransactionType string            `json:"transaction_type" gorm:"type:varchar(32);not null"`
	State           LedgerState       `json:"state" gorm:"not null;index"`
	Currency        string            `json:"currency" gorm:"type:varchar(3);not null"`
	Amount          string            `json:"amount" gorm:"type:varchar(32);not null"`
	Unaccountable   bool              `json:"unaccountable" gorm:"not null"`
	Hash            string            `json:"hash" gorm:"type:varchar(36);uniqueIndex"`
	Properties      []PaymentProperty `json:"properties" gorm:"foreignKey:PaymentID"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName specifies the table name
func (PaymentRecord) TableName() string {
	return "payments"
}

// BeforeCreate regenerates the record hash
func (r *PaymentRecord) BeforeCreate(tx *gorm.DB) error {
	r.Hash = uuid.NewString()
	return nil
}

// PropertyValue returns the value of the first property of the given type
func (r *PaymentRecord) PropertyValue(typeID PropertyType) (string, bool) {
	for _, p := range r.Properties {
		if p.TypeID == typeID {
			return p.Value, true
		}
	}
	return "", false
}

// SetPropertyValue replaces the value of the first property of the given type, appending one if absent
func (r *PaymentRecord) SetPropertyValue(typeID PropertyType, value string) {
	for i := range r.Properties {
		if r.Properties[i].TypeID == typeID {
			r.Properties[i].Value = value
			return
		}
	}
	r.Properties = append(r.Properties, PaymentProperty{TypeID: typeID, Value: value})
}

// TransactionID returns the gateway transaction id property
func (r *PaymentRecord) TransactionID() string {
	v, _ := r.PropertyValue(PropertyTransactionID)
	return v
}

// BookingText returns the audit text property
func (r *PaymentRecord) BookingText() string {
	v, _ := r.PropertyValue(PropertyBookingText)
	return v
}

// PaymentProperty is a typed key/value pair attached to a PaymentRecord
type PaymentProperty struct {
	ID        uint         `json:"-" gorm:"primaryKey"`
	PaymentID uint         `json:"-" gorm:"not null;index"`
	TypeID    PropertyType `json:"type_id" gorm:"not null;index:idx_property_type_value"`
	Value     string       `json:"value" gorm:"type:text;not null;index:idx_property_type_value"`
}

// TableName specifies the table name
func (PaymentProperty) TableName() string {
	return "payment_properties"
}

// Order is the order a payment is booked against
type Order struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// OrderPaymentRelation links a payment record to exactly one order
type OrderPaymentRelation struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   uint      `gorm:"not null;index"`
	PaymentID uint      `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

// TableName specifies the table name
func (OrderPaymentRelation) TableName() string {
	return "order_payment_relations"
}

// Country is reference data used for booking texts
type Country struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null"`
	IsoCode2 string `json:"iso_code_2" gorm:"column:iso_code2;type:varchar(2);uniqueIndex"`
	IsoCode3 string `json:"iso_code_3" gorm:"column:iso_code3;type:varchar(3);uniqueIndex"`
}

// TableName specifies the table name
func (Country) TableName() string {
	return "countries"
}

// ISOCodeKind selects which ISO 3166 code a country lookup matches on
type ISOCodeKind int

// ISO code kinds
const (
	ISO2 ISOCodeKind = iota
	ISO3
)
