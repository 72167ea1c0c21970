package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/gateway"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
)

type failingCountries struct{ err error }

func (f failingCountries) FindCountryByISOCode(ctx context.Context, code string, kind domain.ISOCodeKind) (*domain.Country, error) {
	return nil, f.err
}

type recordingLookup struct {
	keys    []string
	methods map[string]domain.PaymentMethod
}

func (l *recordingLookup) ByKey(key string) (*domain.PaymentMethod, bool) {
	l.keys = append(l.keys, key)
	m, ok := l.methods[key]
	if !ok {
		return nil, false
	}
	return &m, true
}

func newTestBuilder() *Builder {
	mem := repository.NewMemoryStore()
	mem.AddCountry(domain.Country{Name: "Germany", IsoCode2: "DE", IsoCode3: "DEU"})
	mem.AddCountry(domain.Country{Name: "Austria", IsoCode2: "AT", IsoCode3: "AUT"})
	return NewBuilder(status.NewTranslator(gateway.NewClassifier()), mem, "")
}

func testIndex() *method.Index {
	return method.NewIndex([]domain.PaymentMethod{
		{ID: 1, PluginKey: method.DefaultNamespace, PaymentKey: "PAYRETO_ACC", Name: "Credit Card"},
		{ID: 2, PluginKey: method.DefaultNamespace, PaymentKey: "PAYRETO_OBT", Name: "Online Bank Transfer"},
	})
}

func TestPaymentText_OnlyTransactionID(t *testing.T) {
	text, err := newTestBuilder().PaymentText(context.Background(), domain.GatewayStatusPayload{TransactionID: "TX1"}, testIndex())
	require.NoError(t, err)
	assert.Equal(t, "Transaction ID : TX1", text)
}

func TestPaymentText_NoFields(t *testing.T) {
	text, err := newTestBuilder().PaymentText(context.Background(), domain.GatewayStatusPayload{}, testIndex())
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestPaymentText_AllFieldsInOrder(t *testing.T) {
	p := domain.GatewayStatusPayload{
		TransactionID:     "TX9",
		PaymentType:       "ACC",
		Status:            "3",
		Result:            domain.GatewayResult{Code: "000.000.000"},
		IPCountry:         "DE",
		InstrumentCountry: "AUT",
		PayerEmail:        "payer@example.com",
	}

	text, err := newTestBuilder().PaymentText(context.Background(), p, testIndex())
	require.NoError(t, err)
	assert.Equal(t, "Transaction ID : TX9\n"+
		"Used payment method : Credit Card\n"+
		"Payment status : Processed\n"+
		"Order originated from : Germany\n"+
		"Country (of the card-issuer) : Austria\n"+
		"Payreto account email : payer@example.com", text)
}

func TestPaymentText_NGPIsLookedUpAsOBT(t *testing.T) {
	lookup := &recordingLookup{methods: map[string]domain.PaymentMethod{
		"PAYRETO_OBT": {ID: 2, PaymentKey: "PAYRETO_OBT", Name: "Online Bank Transfer"},
	}}

	text, err := newTestBuilder().PaymentText(context.Background(), domain.GatewayStatusPayload{PaymentType: "NGP"}, lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAYRETO_OBT"}, lookup.keys)
	assert.Equal(t, "Used payment method : Online Bank Transfer", text)
}

func TestPaymentText_UnresolvedMethodAndCountryAreSkipped(t *testing.T) {
	p := domain.GatewayStatusPayload{
		TransactionID: "TX2",
		PaymentType:   "XYZ",
		IPCountry:     "ZZ",
	}

	text, err := newTestBuilder().PaymentText(context.Background(), p, testIndex())
	require.NoError(t, err)
	assert.Equal(t, "Transaction ID : TX2", text)
}

func TestPaymentText_PendingReview(t *testing.T) {
	p := domain.GatewayStatusPayload{Status: "1", Result: domain.GatewayResult{Code: "000.400.000"}}

	text, err := newTestBuilder().PaymentText(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, "Payment status : Pending", text)
}

func TestPaymentText_CountryLookupFailurePropagates(t *testing.T) {
	boom := errors.New("reference data unavailable")
	b := NewBuilder(status.NewTranslator(gateway.NewClassifier()), failingCountries{err: boom}, "")

	_, err := b.PaymentText(context.Background(), domain.GatewayStatusPayload{IPCountry: "DE"}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRefundText_BothShapes(t *testing.T) {
	b := newTestBuilder()
	want := "Transaction ID : RF1\nRefund status : Processed"

	structured := domain.RefundStatusPayload{ID: "RF1", Result: domain.GatewayResult{Code: "000.100.110"}}
	assert.Equal(t, want, b.RefundText(structured))

	bag := domain.RefundBag{"id": "RF1", "result": map[string]any{"code": "000.100.110"}}
	assert.Equal(t, want, b.RefundText(bag))
}

func TestRefundText_Empty(t *testing.T) {
	assert.Equal(t, "", newTestBuilder().RefundText(domain.RefundBag{}))
	assert.Equal(t, "Transaction ID : RF2", newTestBuilder().RefundText(domain.RefundStatusPayload{ID: "RF2"}))
}

func TestMethodKey(t *testing.T) {
	b := newTestBuilder()
	assert.Equal(t, "PAYRETO_OBT", b.MethodKey("NGP"))
	assert.Equal(t, "PAYRETO_ACC", b.MethodKey("ACC"))
}
