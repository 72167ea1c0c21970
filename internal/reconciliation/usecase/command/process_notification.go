package command

import (
	"context"
	"fmt"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/record"
	"github.com/tair/payreto-reconciler/pkg/logger"
)

// NotificationCommand represents one gateway status notification
type NotificationCommand struct {
	Payload domain.GatewayStatusPayload
}

// ProcessNotificationHandler books gateway status notifications on the ledger
type ProcessNotificationHandler struct {
	ledger    domain.LedgerStore
	orders    domain.OrderStore
	builder   *record.Builder
	publisher domain.RecordPublisher
	recorder  Recorder
	policy    Policy
}

// NewProcessNotificationHandler creates a new process notification handler.
// publisher and recorder may be nil.
func NewProcessNotificationHandler(
	ledger domain.LedgerStore,
	orders domain.OrderStore,
	builder *record.Builder,
	publisher domain.RecordPublisher,
	recorder Recorder,
	policy Policy,
) *ProcessNotificationHandler {
	return &ProcessNotificationHandler{
		ledger:    ledger,
		orders:    orders,
		builder:   builder,
		publisher: publisher,
		recorder:  recorderOrNop(recorder),
		policy:    policy,
	}
}

// Handle executes the process notification command
func (h *ProcessNotificationHandler) Handle(ctx context.Context, cmd NotificationCommand) (*NotificationResult, error) {
	p := cmd.Payload
	log := logger.ForNotification(ctx, p.TransactionID, p.OrderID)

	rec, err := h.builder.FromGatewayStatus(ctx, p)
	if err != nil {
		h.recorder.ObserveOutcome(domain.KindCredit, OutcomeRejected)
		return nil, err
	}

	result := &NotificationResult{}
	if p.TransactionID != "" {
		existing, err := h.ledger.FindRecordsByProperty(ctx, domain.PropertyTransactionID, p.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to find records for transaction %s: %w", p.TransactionID, err)
		}

		if latest := latestOfKind(existing, domain.KindCredit); latest != nil {
			if latest.State == rec.State {
				return h.handleDuplicate(ctx, latest, p)
			}

			if !domain.CanTransition(latest.State, rec.State) {
				result.Anomaly = true
				h.recorder.ObserveAnomaly(domain.KindCredit, latest.State, rec.State)
				log.Warn().
					Stringer("from", latest.State).
					Stringer("to", rec.State).
					Uint("previous_record_id", latest.ID).
					Bool("strict", h.policy.StrictTransitions).
					Msg("Illegal ledger state transition")

				if h.policy.StrictTransitions {
					h.recorder.ObserveOutcome(domain.KindCredit, OutcomeRejected)
					return nil, fmt.Errorf("%w: %s -> %s for transaction %s",
						domain.ErrIllegalTransition, latest.State, rec.State, p.TransactionID)
				}
			}
		}
	}

	if err := h.ledger.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	linked, err := linkOrder(ctx, h.ledger, h.orders, log, rec, p.OrderID)
	if err != nil {
		return nil, err
	}

	result.Record = rec
	result.Linked = linked
	if linked {
		result.OrderID = p.OrderID
	}
	h.recorder.ObserveOutcome(domain.KindCredit, createdOutcome(linked))

	log.Info().
		Uint("record_id", rec.ID).
		Stringer("state", rec.State).
		Bool("linked", linked).
		Bool("anomaly", result.Anomaly).
		Msg("Payment record booked")

	event := newEvent(rec, result.OrderID, linked)
	event.PaymentKey = p.PaymentKey
	event.Recurring = method.IsRecurring(p.PaymentKey)
	publish(ctx, h.publisher, log, event)

	return result, nil
}

// handleDuplicate refreshes the stored result code of an already booked notification
// and retries the order linkage if it is still missing. No record is created.
func (h *ProcessNotificationHandler) handleDuplicate(ctx context.Context, latest *domain.PaymentRecord, p domain.GatewayStatusPayload) (*NotificationResult, error) {
	log := logger.ForNotification(ctx, p.TransactionID, p.OrderID)

	if code := p.ResultCode(); code != "" {
		if current, _ := latest.PropertyValue(domain.PropertyExternalTransactionStatus); current != code {
			if err := h.ledger.UpdatePropertyValue(ctx, latest.ID, domain.PropertyExternalTransactionStatus, code); err != nil {
				return nil, fmt.Errorf("failed to refresh result code of record %d: %w", latest.ID, err)
			}
			latest.SetPropertyValue(domain.PropertyExternalTransactionStatus, code)
		}
	}

	orderID, linked, err := linkedOrder(ctx, h.ledger, latest.ID)
	if err != nil {
		return nil, err
	}
	if !linked && p.OrderID != 0 {
		if linked, err = linkOrder(ctx, h.ledger, h.orders, log, latest, p.OrderID); err != nil {
			return nil, err
		}
		if linked {
			orderID = p.OrderID
		}
	}

	h.recorder.ObserveOutcome(domain.KindCredit, OutcomeDuplicate)
	log.Info().
		Uint("record_id", latest.ID).
		Stringer("state", latest.State).
		Msg("Duplicate notification, nothing booked")

	return &NotificationResult{
		Record:    latest,
		Duplicate: true,
		Linked:    linked,
		OrderID:   orderID,
	}, nil
}

// latestOfKind returns the newest record of the given kind; records are ordered oldest first
func latestOfKind(records []domain.PaymentRecord, kind domain.Kind) *domain.PaymentRecord {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Kind == kind {
			return &records[i]
		}
	}
	return nil
}
