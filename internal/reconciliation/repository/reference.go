package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// GormMethodRegistry implements domain.MethodRegistry using GORM
type GormMethodRegistry struct {
	db *gorm.DB
}

// NewGormMethodRegistry creates a new GORM method registry
func NewGormMethodRegistry(db *gorm.DB) *GormMethodRegistry {
	return &GormMethodRegistry{db: db}
}

// ListMethodsForPlugin lists all methods registered under a plugin namespace in registration order
func (r *GormMethodRegistry) ListMethodsForPlugin(ctx context.Context, namespace string) ([]domain.PaymentMethod, error) {
	var methods []domain.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("plugin_key = ?", namespace).
		Order("id ASC").
		Find(&methods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

// GormOrderStore implements domain.OrderStore using GORM
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates a new GORM order store
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// FindOrderByID retrieves an order by ID
func (s *GormOrderStore) FindOrderByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	if err := s.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// GormCountryLookup implements domain.CountryLookup using GORM
type GormCountryLookup struct {
	db *gorm.DB
}

// NewGormCountryLookup creates a new GORM country lookup
func NewGormCountryLookup(db *gorm.DB) *GormCountryLookup {
	return &GormCountryLookup{db: db}
}

// FindCountryByISOCode retrieves a country by its ISO 3166 alpha-2 or alpha-3 code, ignoring case
func (l *GormCountryLookup) FindCountryByISOCode(ctx context.Context, code string, kind domain.ISOCodeKind) (*domain.Country, error) {
	column := "iso_code2"
	if kind == domain.ISO3 {
		column = "iso_code3"
	}

	var country domain.Country
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := l.db.WithContext(ctx).Where("UPPER("+column+") = ?", code).First(&country).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCountryNotFound
		}
		return nil, fmt.Errorf("failed to find country: %w", err)
	}
	return &country, nil
}
