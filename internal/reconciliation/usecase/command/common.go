package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// Policy tunes how the handlers react to out-of-order gateway notifications
type Policy struct {
	// StrictTransitions rejects illegal state transitions instead of booking them as anomalies
	StrictTransitions bool
}

// Outcome labels what a handler did with a notification
type Outcome string

// Outcomes
const (
	OutcomeCreated         Outcome = "created"
	OutcomeCreatedUnlinked Outcome = "created_unlinked"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeRejected        Outcome = "rejected"
)

// Recorder receives handler outcomes, typically to feed metrics
type Recorder interface {
	ObserveOutcome(kind domain.Kind, outcome Outcome)
	ObserveAnomaly(kind domain.Kind, from, to domain.LedgerState)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(domain.Kind, Outcome) {}
func (nopRecorder) ObserveAnomaly(domain.Kind, domain.LedgerState, domain.LedgerState) {}

// NotificationResult reports what processing a notification produced
type NotificationResult struct {
	Record *domain.PaymentRecord
	// Duplicate is set when the notification was already booked and nothing new was created
	Duplicate bool
	Linked    bool
	OrderID   uint
	// Anomaly is set when the booked state does not follow from the previous one
	Anomaly bool
}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// linkOrder links rec to orderID when the order exists. A missing order leaves the record unlinked.
func linkOrder(ctx context.Context, ledger domain.LedgerStore, orders domain.OrderStore, log *zerolog.Logger, rec *domain.PaymentRecord, orderID uint) (bool, error) {
	if orderID == 0 {
		log.Warn().Uint("record_id", rec.ID).Msg("Notification carries no order reference, record left unlinked")
		return false, nil
	}

	if _, err := orders.FindOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			log.Warn().Uint("record_id", rec.ID).Msg("Order not found, record left unlinked")
			return false, nil
		}
		return false, fmt.Errorf("failed to find order %d: %w", orderID, err)
	}

	if err := ledger.LinkRecordToOrder(ctx, rec, orderID); err != nil {
		return false, fmt.Errorf("failed to link record %d to order %d: %w", rec.ID, orderID, err)
	}
	return true, nil
}

// linkedOrder returns the order rec is linked to, if any
func linkedOrder(ctx context.Context, ledger domain.LedgerStore, recordID uint) (uint, bool, error) {
	orderID, err := ledger.FindOrderIDByRecord(ctx, recordID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find order of record %d: %w", recordID, err)
	}
	return orderID, true, nil
}

func publish(ctx context.Context, publisher domain.RecordPublisher, log *zerolog.Logger, event domain.RecordCreated) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishRecordCreated(ctx, event); err != nil {
		// Downstream consumers can rebuild from the ledger; booking stands.
		log.Error().Err(err).Uint("record_id", event.RecordID).Msg("Failed to publish ledger record event")
	}
}

func newEvent(rec *domain.PaymentRecord, orderID uint, linked bool) domain.RecordCreated {
	return domain.RecordCreated{
		RecordID:      rec.ID,
		ParentID:      rec.ParentID,
		Kind:          rec.Kind,
		State:         rec.State,
		TransactionID: rec.TransactionID(),
		OrderID:       orderID,
		Linked:        linked,
		Currency:      rec.Currency,
		Amount:        rec.Amount,
	}
}

func createdOutcome(linked bool) Outcome {
	if linked {
		return OutcomeCreated
	}
	return OutcomeCreatedUnlinked
}
