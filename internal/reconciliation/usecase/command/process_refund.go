package command

import (
	"context"
	"fmt"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/record"
	"github.com/tair/payreto-reconciler/pkg/logger"
)

// RefundCommand represents a refund notification against a booked payment
type RefundCommand struct {
	OriginalPaymentID uint
	Refund            domain.RefundSource
}

// ProcessRefundHandler books refunds as debit records linked to the original payment
type ProcessRefundHandler struct {
	ledger    domain.LedgerStore
	builder   *record.Builder
	resolver  *method.Resolver
	publisher domain.RecordPublisher
	recorder  Recorder
	policy    Policy
}

// NewProcessRefundHandler creates a new process refund handler
func NewProcessRefundHandler(
	ledger domain.LedgerStore,
	builder *record.Builder,
	resolver *method.Resolver,
	publisher domain.RecordPublisher,
	recorder Recorder,
	policy Policy,
) *ProcessRefundHandler {
	return &ProcessRefundHandler{
		ledger:    ledger,
		builder:   builder,
		resolver:  resolver,
		publisher: publisher,
		recorder:  recorderOrNop(recorder),
		policy:    policy,
	}
}

// Handle executes the process refund command
func (h *ProcessRefundHandler) Handle(ctx context.Context, cmd RefundCommand) (*NotificationResult, error) {
	if err := domain.ValidateRefund(cmd.Refund); err != nil {
		h.recorder.ObserveOutcome(domain.KindDebit, OutcomeRejected)
		return nil, err
	}
	if cmd.OriginalPaymentID == 0 {
		h.recorder.ObserveOutcome(domain.KindDebit, OutcomeRejected)
		return nil, &domain.ValidationError{Field: "original_payment", Reason: "is required"}
	}

	refundID := cmd.Refund.RefundID()
	original, err := h.ledger.FindRecordByID(ctx, cmd.OriginalPaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load original payment %d: %w", cmd.OriginalPaymentID, err)
	}
	// only incoming payments can be refunded, never a refund itself
	if original.Kind != domain.KindCredit {
		h.recorder.ObserveOutcome(domain.KindDebit, OutcomeRejected)
		return nil, &domain.ValidationError{Field: "original_payment", Reason: "is not a payment"}
	}

	// Orders are taken from the original payment, never from the refund payload
	orderID, linked, err := linkedOrder(ctx, h.ledger, original.ID)
	if err != nil {
		return nil, err
	}
	log := logger.ForNotification(ctx, refundID, orderID)

	owned, err := h.ownsPayment(ctx, original)
	if err != nil {
		return nil, err
	}
	if !owned {
		h.recorder.ObserveOutcome(domain.KindDebit, OutcomeRejected)
		return nil, &domain.ValidationError{Field: "original_payment", Reason: "is not a Payreto payment"}
	}

	if dup, err := h.findBookedRefund(ctx, refundID, original.ID); err != nil {
		return nil, err
	} else if dup != nil {
		h.recorder.ObserveOutcome(domain.KindDebit, OutcomeDuplicate)
		log.Info().Uint("record_id", dup.ID).Msg("Duplicate refund notification, nothing booked")
		return &NotificationResult{Record: dup, Duplicate: true, Linked: linked, OrderID: orderID}, nil
	}

	anomaly := false
	if !domain.CanRefund(original.State) {
		anomaly = true
		h.recorder.ObserveAnomaly(domain.KindDebit, original.State, domain.StateRefunded)
		log.Warn().
			Uint("original_record_id", original.ID).
			Stringer("original_state", original.State).
			Bool("strict", h.policy.StrictTransitions).
			Msg("Refund against a payment that was never approved")

		if h.policy.StrictTransitions {
			h.recorder.ObserveOutcome(domain.KindDebit, OutcomeRejected)
			return nil, fmt.Errorf("%w: refund of %s payment %d",
				domain.ErrIllegalTransition, original.State, original.ID)
		}
	}

	rec, err := h.builder.RefundFromStatus(original, cmd.Refund)
	if err != nil {
		return nil, err
	}
	if err := h.ledger.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create refund record: %w", err)
	}

	if linked {
		if err := h.ledger.LinkRecordToOrder(ctx, rec, orderID); err != nil {
			return nil, fmt.Errorf("failed to link refund record %d to order %d: %w", rec.ID, orderID, err)
		}
	} else {
		log.Warn().
			Uint("record_id", rec.ID).
			Uint("original_record_id", original.ID).
			Msg("Original payment is not linked to an order, refund left unlinked")
	}
	h.recorder.ObserveOutcome(domain.KindDebit, createdOutcome(linked))

	log.Info().
		Uint("record_id", rec.ID).
		Uint("original_record_id", original.ID).
		Stringer("state", rec.State).
		Bool("linked", linked).
		Msg("Refund record booked")

	publish(ctx, h.publisher, log, newEvent(rec, orderID, linked))

	return &NotificationResult{Record: rec, Linked: linked, OrderID: orderID, Anomaly: anomaly}, nil
}

// ownsPayment reports whether the original payment was booked through this gateway
func (h *ProcessRefundHandler) ownsPayment(ctx context.Context, original *domain.PaymentRecord) (bool, error) {
	if origin, _ := original.PropertyValue(domain.PropertyOrigin); origin == domain.OriginPlugin {
		return true, nil
	}
	owned, err := h.resolver.IsPluginMethod(ctx, original.MethodID)
	if err != nil {
		return false, fmt.Errorf("failed to check payment method %d: %w", original.MethodID, err)
	}
	return owned, nil
}

func (h *ProcessRefundHandler) findBookedRefund(ctx context.Context, refundID string, originalID uint) (*domain.PaymentRecord, error) {
	existing, err := h.ledger.FindRecordsByProperty(ctx, domain.PropertyTransactionID, refundID)
	if err != nil {
		return nil, fmt.Errorf("failed to find records for refund %s: %w", refundID, err)
	}
	for i := range existing {
		r := &existing[i]
		if r.Kind == domain.KindDebit && r.ParentID != nil && *r.ParentID == originalID {
			return r, nil
		}
	}
	return nil, nil
}

