package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tair/payreto-reconciler/internal/reconciliation/booking"
	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/gateway"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/record"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
)

type spyRecorder struct {
	mu        sync.Mutex
	outcomes  []Outcome
	anomalies int
}

func (r *spyRecorder) ObserveOutcome(kind domain.Kind, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *spyRecorder) ObserveAnomaly(kind domain.Kind, from, to domain.LedgerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies++
}

type spyPublisher struct {
	events []domain.RecordCreated
	err    error
}

func (p *spyPublisher) PublishRecordCreated(ctx context.Context, event domain.RecordCreated) error {
	p.events = append(p.events, event)
	return p.err
}

type fixture struct {
	mem          *repository.MemoryStore
	recorder     *spyRecorder
	publisher    *spyPublisher
	notification *ProcessNotificationHandler
	refund       *ProcessRefundHandler
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()

	mem := repository.NewMemoryStore()
	mem.AddMethod(domain.PaymentMethod{ID: 21, PluginKey: method.DefaultNamespace, PaymentKey: "PAYRETO_ACC_RC", Name: "Credit Card (Recurring)"})
	mem.AddMethod(domain.PaymentMethod{ID: 22, PluginKey: method.DefaultNamespace, PaymentKey: "PAYRETO_ACC", Name: "Credit Card"})
	mem.AddMethod(domain.PaymentMethod{ID: 90, PluginKey: "Invoice", PaymentKey: "INVOICE", Name: "Invoice"})
	mem.AddOrder(domain.Order{ID: 7, Reference: "ORD-7"})
	mem.AddCountry(domain.Country{Name: "Germany", IsoCode2: "DE", IsoCode3: "DEU"})

	stores := repository.NewMemoryStores(mem)
	resolver := method.NewResolver(stores.Methods, method.DefaultNamespace)
	texts := booking.NewBuilder(status.NewTranslator(gateway.NewClassifier()), stores.Countries, booking.DefaultMethodPrefix)
	builder := record.NewBuilder(resolver, texts)

	rec := &spyRecorder{}
	pub := &spyPublisher{}
	return &fixture{
		mem:          mem,
		recorder:     rec,
		publisher:    pub,
		notification: NewProcessNotificationHandler(stores.Ledger, stores.Orders, builder, pub, rec, policy),
		refund:       NewProcessRefundHandler(stores.Ledger, builder, resolver, pub, rec, policy),
	}
}

func payload(status, tx string) domain.GatewayStatusPayload {
	return domain.GatewayStatusPayload{
		PaymentKey:    "PAYRETO_ACC_RC",
		Status:        status,
		Currency:      "EUR",
		Amount:        "10.00",
		TransactionID: tx,
		OrderID:       7,
	}
}

type failingLedger struct {
	domain.LedgerStore
}

var errStoreDown = errors.New("store down")

func (failingLedger) FindRecordsByProperty(ctx context.Context, typeID domain.PropertyType, value string) ([]domain.PaymentRecord, error) {
	return nil, errStoreDown
}
