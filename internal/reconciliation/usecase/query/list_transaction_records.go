package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// ListTransactionRecordsQuery represents the query for every record booked under a transaction id
type ListTransactionRecordsQuery struct {
	TransactionID string
}

// ListTransactionRecordsHandler handles list transaction records query
type ListTransactionRecordsHandler struct {
	ledger domain.LedgerStore
}

// NewListTransactionRecordsHandler creates a new list transaction records handler
func NewListTransactionRecordsHandler(ledger domain.LedgerStore) *ListTransactionRecordsHandler {
	return &ListTransactionRecordsHandler{ledger: ledger}
}

// Handle executes the list transaction records query; records come oldest first
func (h *ListTransactionRecordsHandler) Handle(ctx context.Context, query ListTransactionRecordsQuery) ([]domain.PaymentRecord, error) {
	txID := strings.TrimSpace(query.TransactionID)
	if txID == "" {
		return nil, &domain.ValidationError{Field: "transaction_id", Reason: "is required"}
	}

	records, err := h.ledger.FindRecordsByProperty(ctx, domain.PropertyTransactionID, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for transaction %s: %w", txID, err)
	}
	if records == nil {
		records = []domain.PaymentRecord{}
	}
	return records, nil
}
