// Package reconciliation assembles the reconciliation service from its parts.
package reconciliation

import (
	"github.com/google/wire"

	"github.com/tair/payreto-reconciler/internal/reconciliation/booking"
	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/gateway"
	"github.com/tair/payreto-reconciler/internal/reconciliation/handler"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
	"github.com/tair/payreto-reconciler/internal/reconciliation/record"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/command"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/query"
)

// Options carries the gateway settings the core needs
type Options struct {
	Namespace    string
	MethodPrefix string
	Policy       command.Policy
}

// ProvideClassifier provides the gateway result classifier
func ProvideClassifier() domain.ResultClassifier {
	return gateway.NewClassifier()
}

// ProvideTranslator provides the result code translator
func ProvideTranslator(classifier domain.ResultClassifier) *status.Translator {
	return status.NewTranslator(classifier)
}

// ProvideResolver provides the payment method resolver for the configured namespace
func ProvideResolver(registry domain.MethodRegistry, opts Options) *method.Resolver {
	return method.NewResolver(registry, opts.Namespace)
}

// ProvideBookingBuilder provides the booking text builder
func ProvideBookingBuilder(translator *status.Translator, countries domain.CountryLookup, opts Options) *booking.Builder {
	return booking.NewBuilder(translator, countries, opts.MethodPrefix)
}

// Wire sets
var StoreSet = wire.NewSet(
	wire.FieldsOf(new(repository.Stores), "Ledger", "Methods", "Orders", "Countries"),
)

var CoreSet = wire.NewSet(
	wire.FieldsOf(new(Options), "Policy"),
	ProvideClassifier,
	ProvideTranslator,
	ProvideResolver,
	ProvideBookingBuilder,
	record.NewBuilder,
)

var CommandHandlerSet = wire.NewSet(
	command.NewProcessNotificationHandler,
	command.NewProcessRefundHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetOrderPaymentStatusHandler,
	query.NewListTransactionRecordsHandler,
)

var AllHandlersSet = wire.NewSet(
	StoreSet,
	CoreSet,
	CommandHandlerSet,
	QueryHandlerSet,
	handler.NewReconciliationHandler,
)
