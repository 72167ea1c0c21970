//go:build wireinject
// +build wireinject

package reconciliation

import (
	"github.com/google/wire"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/handler"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/command"
	"github.com/tair/payreto-reconciler/pkg/lock"
)

// InitializeHandler initializes the reconciliation handler with all dependencies
func InitializeHandler(
	stores repository.Stores,
	opts Options,
	publisher domain.RecordPublisher,
	recorder command.Recorder,
	locker lock.Locker,
) (*handler.ReconciliationHandler, error) {
	wire.Build(AllHandlersSet)
	return nil, nil
}
