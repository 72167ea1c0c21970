package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// Stores bundles the collaborators the reconciliation core reads and writes
type Stores struct {
	Ledger    domain.LedgerStore
	Methods   domain.MethodRegistry
	Orders    domain.OrderStore
	Countries domain.CountryLookup
}

// NewGormStores builds traced GORM-backed stores
func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Ledger:    NewTracingLedgerStore(NewGormLedgerStore(db)),
		Methods:   NewGormMethodRegistry(db),
		Orders:    NewGormOrderStore(db),
		Countries: NewGormCountryLookup(db),
	}
}

// NewMemoryStores builds stores sharing one MemoryStore
func NewMemoryStores(mem *MemoryStore) Stores {
	return Stores{
		Ledger:    NewTracingLedgerStore(mem),
		Methods:   mem,
		Orders:    mem,
		Countries: mem,
	}
}

// AutoMigrate creates or updates every table the service owns or reads
func AutoMigrate(db *gorm.DB) error {
	if err := NewGormLedgerStore(db).AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	if err := db.AutoMigrate(&domain.PaymentMethod{}, &domain.Order{}, &domain.Country{}); err != nil {
		return fmt.Errorf("failed to migrate reference tables: %w", err)
	}
	return nil
}
