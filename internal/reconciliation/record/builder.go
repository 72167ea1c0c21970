// Package record turns gateway notifications into ledger records ready for persistence.
package record

import (
	"context"
	"fmt"

	"github.com/tair/payreto-reconciler/internal/reconciliation/booking"
	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
)

// Builder constructs payment and refund records
type Builder struct {
	resolver *method.Resolver
	texts    *booking.Builder
}

// NewBuilder creates a record builder
func NewBuilder(resolver *method.Resolver, texts *booking.Builder) *Builder {
	return &Builder{resolver: resolver, texts: texts}
}

// FromGatewayStatus builds a credit record for a status notification.
// The method registry is read once per payload; an unknown payment key leaves MethodID at 0.
func (b *Builder) FromGatewayStatus(ctx context.Context, p domain.GatewayStatusPayload) (*domain.PaymentRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	methods, err := b.resolver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var methodID uint
	if m, ok := methods.ByKey(p.PaymentKey); ok {
		methodID = m.ID
	}

	text, err := b.texts.PaymentText(ctx, p, methods)
	if err != nil {
		return nil, fmt.Errorf("failed to build booking text: %w", err)
	}

	state := status.MapState(p.Status, false)
	rec := &domain.PaymentRecord{
		MethodID:        methodID,
		Kind:            domain.KindCredit,
		TransactionType: domain.TransactionTypeBookedPosting,
		State:           state,
		Currency:        p.Currency,
		Amount:          p.Amount,
		Unaccountable:   state != domain.StateCaptured,
		Properties:      baseProperties(p.TransactionID, text, p.ResultCode()),
	}
	return rec, nil
}

// RefundFromStatus builds the debit record for a refund of original.
// Refund notifications only arrive for approved refunds, so the state is always
// derived from the approved status code.
func (b *Builder) RefundFromStatus(original *domain.PaymentRecord, refund domain.RefundSource) (*domain.PaymentRecord, error) {
	if err := domain.ValidateRefund(refund); err != nil {
		return nil, err
	}
	if original == nil || original.ID == 0 {
		return nil, &domain.ValidationError{Field: "original_payment", Reason: "is required"}
	}

	parentID := original.ID
	state := status.MapState(status.CodeApproved, true)
	rec := &domain.PaymentRecord{
		MethodID:        original.MethodID,
		ParentID:        &parentID,
		Kind:            domain.KindDebit,
		TransactionType: domain.TransactionTypeBookedPosting,
		State:           state,
		Currency:        refund.Currency(),
		Amount:          refund.Amount(),
		Unaccountable:   state != domain.StateRefunded,
		Properties:      baseProperties(refund.RefundID(), b.texts.RefundText(refund), refund.ResultCode()),
	}
	return rec, nil
}

func baseProperties(transactionID, bookingText, resultCode string) []domain.PaymentProperty {
	props := []domain.PaymentProperty{
		{TypeID: domain.PropertyTransactionID, Value: transactionID},
		{TypeID: domain.PropertyOrigin, Value: domain.OriginPlugin},
		{TypeID: domain.PropertyBookingText, Value: bookingText},
	}
	if resultCode != "" {
		props = append(props, domain.PaymentProperty{TypeID: domain.PropertyExternalTransactionStatus, Value: resultCode})
	}
	return props
}
