package kafka

import (
	"encoding/json"
	"time"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// PaymentStatusEvent carries a gateway status notification relayed through Kafka
type PaymentStatusEvent struct {
	EventID   string                      `json:"event_id"`
	EventType string                      `json:"event_type"`
	Payload   domain.GatewayStatusPayload `json:"payload"`
	Timestamp time.Time                   `json:"timestamp"`
}

// RefundStatusEvent carries a refund notification for a booked payment.
// Refund is kept raw since the gateway sends it in more than one shape.
type RefundStatusEvent struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OriginalPaymentID uint            `json:"original_payment_id"`
	Refund            json.RawMessage `json:"refund"`
	Timestamp         time.Time       `json:"timestamp"`
}

// LedgerRecordCreatedEvent announces a booked ledger record
type LedgerRecordCreatedEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	RecordID      uint      `json:"record_id"`
	ParentID      *uint     `json:"parent_id,omitempty"`
	Kind          string    `json:"kind"`
	State         string    `json:"state"`
	StateID       int       `json:"state_id"`
	TransactionID string    `json:"transaction_id"`
	OrderID       uint      `json:"order_id,omitempty"`
	Linked        bool      `json:"linked"`
	Currency      string    `json:"currency"`
	Amount        string    `json:"amount"`
	PaymentKey    string    `json:"payment_key,omitempty"`
	Recurring     bool      `json:"recurring"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerRecordCreatedEvent converts a domain event into its wire form
func NewLedgerRecordCreatedEvent(e domain.RecordCreated) LedgerRecordCreatedEvent {
	return LedgerRecordCreatedEvent{
		RecordID:      e.RecordID,
		ParentID:      e.ParentID,
		Kind:          string(e.Kind),
		State:         e.State.String(),
		StateID:       int(e.State),
		TransactionID: e.TransactionID,
		OrderID:       e.OrderID,
		Linked:        e.Linked,
		Currency:      e.Currency,
		Amount:        e.Amount,
		PaymentKey:    e.PaymentKey,
		Recurring:     e.Recurring,
	}
}

// Event types
const (
	EventTypePaymentStatus       = "payreto.payment_status"
	EventTypeRefundStatus        = "payreto.refund_status"
	EventTypeLedgerRecordCreated = "ledger.record_created"
)

// Kafka topics
const (
	TopicPayretoNotifications = "payreto-notifications"
	TopicLedgerRecords        = "ledger-records"
)
