package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/kafka"
	"github.com/tair/payreto-reconciler/pkg/logger"
)

// EventRegistrar is implemented by kafka.Consumer
type EventRegistrar interface {
	RegisterHandler(eventType string, handler kafka.EventHandler)
}

// RegisterEventHandlers wires relayed gateway notifications to the same processing as the webhook
func (h *ReconciliationHandler) RegisterEventHandlers(registrar EventRegistrar) {
	registrar.RegisterHandler(kafka.EventTypePaymentStatus, h.HandlePaymentStatusEvent)
	registrar.RegisterHandler(kafka.EventTypeRefundStatus, h.HandleRefundStatusEvent)
}

// HandlePaymentStatusEvent processes a payreto.payment_status event
func (h *ReconciliationHandler) HandlePaymentStatusEvent(ctx context.Context, msg kafka.Message) error {
	var event kafka.PaymentStatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return h.eventResult(ctx, msg, false, malformed(fmt.Errorf("failed to unmarshal payment status event: %w", err)))
	}

	res, err := h.ProcessNotification(ctx, event.Payload)
	return h.eventResult(ctx, msg, res != nil && res.Duplicate, err)
}

// HandleRefundStatusEvent processes a payreto.refund_status event
func (h *ReconciliationHandler) HandleRefundStatusEvent(ctx context.Context, msg kafka.Message) error {
	var event kafka.RefundStatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return h.eventResult(ctx, msg, false, malformed(fmt.Errorf("failed to unmarshal refund status event: %w", err)))
	}

	bag := domain.RefundBag{}
	if len(event.Refund) > 0 {
		dec := json.NewDecoder(bytes.NewReader(event.Refund))
		dec.UseNumber()
		if err := dec.Decode(&bag); err != nil {
			return h.eventResult(ctx, msg, false, malformed(fmt.Errorf("failed to decode refund document: %w", err)))
		}
	}

	res, err := h.ProcessRefund(ctx, event.OriginalPaymentID, bag)
	return h.eventResult(ctx, msg, res != nil && res.Duplicate, err)
}

func malformed(err error) error {
	return &domain.ValidationError{Field: "event", Reason: err.Error()}
}

// eventResult drops events that can never succeed so they do not block the partition.
// Anything else is returned for the consumer to retry.
func (h *ReconciliationHandler) eventResult(ctx context.Context, msg kafka.Message, duplicate bool, err error) error {
	switch {
	case err == nil:
		logger.Debug(ctx).Str("event_id", msg.EventID).Bool("duplicate", duplicate).Msg("Relayed notification processed")
		return nil
	case domain.IsValidation(err), errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrIllegalTransition):
		logger.Warn(ctx).Err(err).Str("event_id", msg.EventID).Str("event_type", msg.EventType).Msg("Relayed notification rejected")
		return nil
	default:
		return err
	}
}
