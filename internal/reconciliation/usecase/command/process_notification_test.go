package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/payreto-reconciler/internal/reconciliation/booking"
	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/gateway"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/record"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
)

func TestProcessNotification_CapturedLinksOrder(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	res, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("3", "TX42")})
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.True(t, res.Linked)
	assert.Equal(t, uint(7), res.OrderID)
	assert.Equal(t, domain.StateCaptured, res.Record.State)
	assert.False(t, res.Record.Unaccountable)
	assert.Equal(t, "TX42", res.Record.TransactionID())
	assert.NotEmpty(t, res.Record.BookingText())

	orderID, err := f.mem.FindOrderIDByRecord(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(7), orderID)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, res.Record.ID, ev.RecordID)
	assert.True(t, ev.Recurring)
	assert.True(t, ev.Linked)
	assert.Equal(t, []Outcome{OutcomeCreated}, f.recorder.outcomes)
}

func TestProcessNotification_SameStateIsNoop(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	first, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("3", "TX42")})
	require.NoError(t, err)
	second, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("3", "TX42")})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.True(t, second.Linked)
	assert.Equal(t, 1, f.mem.RecordCount())
	assert.Len(t, f.publisher.events, 1)
	assert.Equal(t, []Outcome{OutcomeCreated, OutcomeDuplicate}, f.recorder.outcomes)
}

func TestProcessNotification_DuplicateRefreshesResultCode(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	p := payload("-2", "TX9")
	p.Result.Code = "800.100.151"
	_, err := f.notification.Handle(ctx, NotificationCommand{Payload: p})
	require.NoError(t, err)

	p.Result.Code = "800.100.152"
	res, err := f.notification.Handle(ctx, NotificationCommand{Payload: p})
	require.NoError(t, err)
	require.True(t, res.Duplicate)

	stored, err := f.mem.FindRecordByID(ctx, res.Record.ID)
	require.NoError(t, err)
	code, _ := stored.PropertyValue(domain.PropertyExternalTransactionStatus)
	assert.Equal(t, "800.100.152", code)
	assert.Equal(t, 1, f.mem.RecordCount())
}

func TestProcessNotification_LegalTransitionAppends(t *testing.T) {
	f := newFixture(t, Policy{StrictTransitions: true})
	ctx := context.Background()

	approved, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("2", "TX1")})
	require.NoError(t, err)
	captured, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("3", "TX1")})
	require.NoError(t, err)

	assert.NotEqual(t, approved.Record.ID, captured.Record.ID)
	assert.False(t, captured.Anomaly)
	assert.Equal(t, 2, f.mem.RecordCount())
	assert.Zero(t, f.recorder.anomalies)
}

func TestProcessNotification_IllegalTransition(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		wantErr bool
		records int
	}{
		{name: "lenient books anomaly", strict: false, wantErr: false, records: 2},
		{name: "strict rejects", strict: true, wantErr: true, records: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Policy{StrictTransitions: tt.strict})
			ctx := context.Background()

			_, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("-2", "TX5")})
			require.NoError(t, err)

			res, err := f.notification.Handle(ctx, NotificationCommand{Payload: payload("3", "TX5")})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrIllegalTransition)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				assert.True(t, res.Anomaly)
			}
			assert.Equal(t, 1, f.recorder.anomalies)
			assert.Equal(t, tt.records, f.mem.RecordCount())
		})
	}
}

func TestProcessNotification_MissingOrderLeavesUnlinked(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	p := payload("1", "TX77")
	p.OrderID = 404
	res, err := f.notification.Handle(ctx, NotificationCommand{Payload: p})
	require.NoError(t, err)

	assert.False(t, res.Linked)
	assert.Zero(t, res.OrderID)
	_, err = f.mem.FindOrderIDByRecord(ctx, res.Record.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, []Outcome{OutcomeCreatedUnlinked}, f.recorder.outcomes)

	// the order shows up later; re-delivery links the existing record
	f.mem.AddOrder(domain.Order{ID: 404})
	again, err := f.notification.Handle(ctx, NotificationCommand{Payload: p})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.True(t, again.Linked)
	assert.Equal(t, uint(404), again.OrderID)
	assert.Equal(t, 1, f.mem.RecordCount())
}

func TestProcessNotification_ValidationError(t *testing.T) {
	f := newFixture(t, Policy{})

	p := payload("3", "TX1")
	p.Currency = ""
	res, err := f.notification.Handle(context.Background(), NotificationCommand{Payload: p})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, f.mem.RecordCount())
	assert.Equal(t, []Outcome{OutcomeRejected}, f.recorder.outcomes)
}

func TestProcessNotification_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, Policy{})
	f.publisher.err = errors.New("broker unavailable")

	res, err := f.notification.Handle(context.Background(), NotificationCommand{Payload: payload("3", "TX42")})
	require.NoError(t, err)
	assert.NotZero(t, res.Record.ID)
	assert.Len(t, f.publisher.events, 1)
}

func TestProcessNotification_StoreFailurePropagates(t *testing.T) {
	mem := repository.NewMemoryStore()
	resolver := method.NewResolver(mem, "")
	texts := booking.NewBuilder(status.NewTranslator(gateway.NewClassifier()), mem, "")
	h := NewProcessNotificationHandler(failingLedger{mem}, mem, record.NewBuilder(resolver, texts), nil, nil, Policy{})

	_, err := h.Handle(context.Background(), NotificationCommand{Payload: payload("3", "TX1")})
	assert.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, mem.RecordCount())
}
