package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// Verdict types
const (
	VerdictSuccess = "success"
	VerdictError   = "error"
)

// GetOrderPaymentStatusQuery represents the query for the outcome of a gateway transaction
type GetOrderPaymentStatusQuery struct {
	TransactionID string
}

// PaymentStatusVerdict is the shopper facing outcome of a payment
type PaymentStatusVerdict struct {
	Type     string             `json:"type"`
	Message  string             `json:"message"`
	State    domain.LedgerState `json:"state"`
	RecordID uint               `json:"record_id"`
}

// GetOrderPaymentStatusHandler handles get order payment status query
type GetOrderPaymentStatusHandler struct {
	ledger domain.LedgerStore
}

// NewGetOrderPaymentStatusHandler creates a new get order payment status handler
func NewGetOrderPaymentStatusHandler(ledger domain.LedgerStore) *GetOrderPaymentStatusHandler {
	return &GetOrderPaymentStatusHandler{ledger: ledger}
}

// Handle executes the get order payment status query. The newest credit record decides.
func (h *GetOrderPaymentStatusHandler) Handle(ctx context.Context, query GetOrderPaymentStatusQuery) (*PaymentStatusVerdict, error) {
	txID := strings.TrimSpace(query.TransactionID)
	if txID == "" {
		return nil, &domain.ValidationError{Field: "transaction_id", Reason: "is required"}
	}

	records, err := h.ledger.FindRecordsByProperty(ctx, domain.PropertyTransactionID, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to find records for transaction %s: %w", txID, err)
	}

	var latest *domain.PaymentRecord
	for i := range records {
		if records[i].Kind == domain.KindCredit {
			latest = &records[i]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, domain.ErrRecordNotFound)
	}

	verdict := &PaymentStatusVerdict{
		Type:     VerdictSuccess,
		Message:  "The payment has been executed successfully.",
		State:    latest.State,
		RecordID: latest.ID,
	}
	if latest.State == domain.StateRefused {
		reason, _ := latest.PropertyValue(domain.PropertyExternalTransactionStatus)
		verdict.Type = VerdictError
		verdict.Message = strings.TrimSpace("The payment has been failed : " + reason)
	}
	return verdict, nil
}
