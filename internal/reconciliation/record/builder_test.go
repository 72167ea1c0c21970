package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/payreto-reconciler/internal/reconciliation/booking"
	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/gateway"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	mem := repository.NewMemoryStore()
	mem.AddMethod(domain.PaymentMethod{ID: 21, PluginKey: method.DefaultNamespace, PaymentKey: "PAYRETO_ACC_RC", Name: "Credit Card (Recurring)"})
	mem.AddMethod(domain.PaymentMethod{ID: 22, PluginKey: method.DefaultNamespace, PaymentKey: "PAYRETO_ACC", Name: "Credit Card"})
	mem.AddCountry(domain.Country{Name: "Germany", IsoCode2: "DE", IsoCode3: "DEU"})

	texts := booking.NewBuilder(status.NewTranslator(gateway.NewClassifier()), mem, "")
	return NewBuilder(method.NewResolver(mem, method.DefaultNamespace), texts)
}

func capturedPayload() domain.GatewayStatusPayload {
	return domain.GatewayStatusPayload{
		PaymentKey:    "PAYRETO_ACC_RC",
		Status:        "3",
		Currency:      "EUR",
		Amount:        "10.00",
		TransactionID: "TX42",
		OrderID:       7,
	}
}

func TestFromGatewayStatus_Captured(t *testing.T) {
	rec, err := newTestBuilder(t).FromGatewayStatus(context.Background(), capturedPayload())
	require.NoError(t, err)

	assert.Equal(t, uint(21), rec.MethodID)
	assert.Equal(t, domain.KindCredit, rec.Kind)
	assert.Equal(t, domain.TransactionTypeBookedPosting, rec.TransactionType)
	assert.Equal(t, domain.StateCaptured, rec.State)
	assert.False(t, rec.Unaccountable)
	assert.Equal(t, "EUR", rec.Currency)
	assert.Equal(t, "10.00", rec.Amount)
	assert.Nil(t, rec.ParentID)

	assert.Equal(t, "TX42", rec.TransactionID())
	origin, ok := rec.PropertyValue(domain.PropertyOrigin)
	assert.True(t, ok)
	assert.Equal(t, domain.OriginPlugin, origin)
	assert.NotEmpty(t, rec.BookingText())
	assert.Contains(t, rec.BookingText(), "Transaction ID : TX42")

	_, ok = rec.PropertyValue(domain.PropertyExternalTransactionStatus)
	assert.False(t, ok, "no result code, no external status property")
}

func TestFromGatewayStatus_UnaccountableUnlessCaptured(t *testing.T) {
	b := newTestBuilder(t)
	tests := []struct {
		code          string
		state         domain.LedgerState
		unaccountable bool
	}{
		{code: "1", state: domain.StateAwaitingApproval, unaccountable: true},
		{code: "2", state: domain.StateApproved, unaccountable: true},
		{code: "-2", state: domain.StateRefused, unaccountable: true},
		{code: "3", state: domain.StateCaptured, unaccountable: false},
		{code: "5", state: domain.StateCanceled, unaccountable: true},
	}

	for _, tt := range tests {
		p := capturedPayload()
		p.Status = tt.code
		rec, err := b.FromGatewayStatus(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, tt.state, rec.State, "state for %q", tt.code)
		assert.Equal(t, tt.unaccountable, rec.Unaccountable, "unaccountable for %q", tt.code)
	}
}

func TestFromGatewayStatus_UnresolvedMethodDoesNotBlock(t *testing.T) {
	p := capturedPayload()
	p.PaymentKey = "PAYRETO_UNKNOWN"

	rec, err := newTestBuilder(t).FromGatewayStatus(context.Background(), p)
	require.NoError(t, err)
	assert.Zero(t, rec.MethodID)
}

func TestFromGatewayStatus_ResultCodeKept(t *testing.T) {
	p := capturedPayload()
	p.Result.Code = "000.000.000"
	p.PaymentType = "ACC"

	rec, err := newTestBuilder(t).FromGatewayStatus(context.Background(), p)
	require.NoError(t, err)

	v, ok := rec.PropertyValue(domain.PropertyExternalTransactionStatus)
	assert.True(t, ok)
	assert.Equal(t, "000.000.000", v)
	assert.Equal(t, "Transaction ID : TX42\nUsed payment method : Credit Card\nPayment status : Processed", rec.BookingText())
}

func TestFromGatewayStatus_MandatoryFields(t *testing.T) {
	b := newTestBuilder(t)
	tests := []struct {
		name  string
		edit  func(p *domain.GatewayStatusPayload)
		field string
	}{
		{name: "missing status", edit: func(p *domain.GatewayStatusPayload) { p.Status = "" }, field: "status"},
		{name: "missing currency", edit: func(p *domain.GatewayStatusPayload) { p.Currency = "" }, field: "currency"},
		{name: "bad currency", edit: func(p *domain.GatewayStatusPayload) { p.Currency = "EURO" }, field: "currency"},
		{name: "missing amount", edit: func(p *domain.GatewayStatusPayload) { p.Amount = "" }, field: "amount"},
		{name: "malformed amount", edit: func(p *domain.GatewayStatusPayload) { p.Amount = "ten" }, field: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := capturedPayload()
			tt.edit(&p)

			rec, err := b.FromGatewayStatus(context.Background(), p)
			assert.Nil(t, rec)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRefundFromStatus(t *testing.T) {
	original := &domain.PaymentRecord{ID: 5, MethodID: 21, State: domain.StateCaptured}
	refund := domain.RefundStatusPayload{
		ID:           "RF1",
		CurrencyCode: "EUR",
		AmountValue:  "5.00",
		Result:       domain.GatewayResult{Code: "000.0.0"},
	}

	rec, err := newTestBuilder(t).RefundFromStatus(original, refund)
	require.NoError(t, err)

	assert.Equal(t, domain.KindDebit, rec.Kind)
	require.NotNil(t, rec.ParentID)
	assert.Equal(t, uint(5), *rec.ParentID)
	assert.Equal(t, uint(21), rec.MethodID)
	assert.Equal(t, domain.StateRefunded, rec.State)
	assert.False(t, rec.Unaccountable)
	assert.Equal(t, "EUR", rec.Currency)
	assert.Equal(t, "5.00", rec.Amount)
	assert.Equal(t, "RF1", rec.TransactionID())
	assert.Equal(t, "Transaction ID : RF1\nRefund status : Canceled", rec.BookingText())
}

func TestRefundFromStatus_GenericShape(t *testing.T) {
	original := &domain.PaymentRecord{ID: 9}
	bag := domain.RefundBag{"id": "RF7", "currency": "EUR", "amount": "1.50", "result": map[string]any{"code": "000.000.000"}}

	rec, err := newTestBuilder(t).RefundFromStatus(original, bag)
	require.NoError(t, err)
	assert.Equal(t, "RF7", rec.TransactionID())
	assert.Equal(t, "1.50", rec.Amount)
	assert.Equal(t, "Transaction ID : RF7\nRefund status : Processed", rec.BookingText())
}

func TestRefundFromStatus_MissingID(t *testing.T) {
	_, err := newTestBuilder(t).RefundFromStatus(&domain.PaymentRecord{ID: 1}, domain.RefundStatusPayload{})
	assert.True(t, domain.IsValidation(err))

	_, err = newTestBuilder(t).RefundFromStatus(nil, domain.RefundStatusPayload{ID: "RF1"})
	assert.True(t, domain.IsValidation(err))
}
