package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

var tracer = otel.Tracer("ledger-repository")

// TracingLedgerStore wraps a LedgerStore with a span per call
type TracingLedgerStore struct {
	next domain.LedgerStore
}

// NewTracingLedgerStore creates a ledger store with tracing
func NewTracingLedgerStore(next domain.LedgerStore) *TracingLedgerStore {
	return &TracingLedgerStore{next: next}
}

func (s *TracingLedgerStore) CreateRecord(ctx context.Context, record *domain.PaymentRecord) error {
	ctx, span := tracer.Start(ctx, "repository.CreateRecord",
		trace.WithAttributes(
			attribute.String("payment.kind", string(record.Kind)),
			attribute.String("payment.state", record.State.String()),
			attribute.String("payment.transaction_id", record.TransactionID()),
		),
	)
	defer span.End()

	if err := s.next.CreateRecord(ctx, record); err != nil {
		addErrorToSpan(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("payment.id", int(record.ID)))
	return nil
}

func (s *TracingLedgerStore) FindRecordByID(ctx context.Context, id uint) (*domain.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.FindRecordByID",
		trace.WithAttributes(attribute.Int("payment.id", int(id))),
	)
	defer span.End()

	record, err := s.next.FindRecordByID(ctx, id)
	if err != nil {
		addErrorToSpan(span, err)
		return nil, err
	}
	return record, nil
}

func (s *TracingLedgerStore) FindRecordsByProperty(ctx context.Context, typeID domain.PropertyType, value string) ([]domain.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "repository.FindRecordsByProperty",
		trace.WithAttributes(
			attribute.Int("property.type_id", int(typeID)),
			attribute.String("property.value", value),
		),
	)
	defer span.End()

	records, err := s.next.FindRecordsByProperty(ctx, typeID, value)
	if err != nil {
		addErrorToSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(records)))
	return records, nil
}

func (s *TracingLedgerStore) LinkRecordToOrder(ctx context.Context, record *domain.PaymentRecord, orderID uint) error {
	ctx, span := tracer.Start(ctx, "repository.LinkRecordToOrder",
		trace.WithAttributes(
			attribute.Int("payment.id", int(record.ID)),
			attribute.Int("order.id", int(orderID)),
		),
	)
	defer span.End()

	if err := s.next.LinkRecordToOrder(ctx, record, orderID); err != nil {
		addErrorToSpan(span, err)
		return err
	}
	return nil
}

func (s *TracingLedgerStore) FindOrderIDByRecord(ctx context.Context, recordID uint) (uint, error) {
	ctx, span := tracer.Start(ctx, "repository.FindOrderIDByRecord",
		trace.WithAttributes(attribute.Int("payment.id", int(recordID))),
	)
	defer span.End()

	orderID, err := s.next.FindOrderIDByRecord(ctx, recordID)
	if err != nil {
		addErrorToSpan(span, err)
		return 0, err
	}

	span.SetAttributes(attribute.Int("order.id", int(orderID)))
	return orderID, nil
}

func (s *TracingLedgerStore) UpdatePropertyValue(ctx context.Context, recordID uint, typeID domain.PropertyType, value string) error {
	ctx, span := tracer.Start(ctx, "repository.UpdatePropertyValue",
		trace.WithAttributes(
			attribute.Int("payment.id", int(recordID)),
			attribute.Int("property.type_id", int(typeID)),
		),
	)
	defer span.End()

	if err := s.next.UpdatePropertyValue(ctx, recordID, typeID, value); err != nil {
		addErrorToSpan(span, err)
		return err
	}
	return nil
}

// addErrorToSpan marks the span failed; not-found results are expected and only recorded as events
func addErrorToSpan(span trace.Span, err error) {
	if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrOrderNotFound) {
		span.AddEvent(err.Error())
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
