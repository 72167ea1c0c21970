package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// GormLedgerStore implements domain.LedgerStore using GORM
type GormLedgerStore struct {
	db *gorm.DB
}

// NewGormLedgerStore creates a new GORM ledger store
func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{db: db}
}

// CreateRecord inserts a record together with its properties
func (s *GormLedgerStore) CreateRecord(ctx context.Context, record *domain.PaymentRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create payment record: %w", err)
	}
	return nil
}

// FindRecordByID retrieves a record with its properties
func (s *GormLedgerStore) FindRecordByID(ctx context.Context, id uint) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := s.db.WithContext(ctx).Preload("Properties", orderByID).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find payment record: %w", err)
	}
	return &record, nil
}

// FindRecordsByProperty retrieves all records carrying a property with the given type and value
func (s *GormLedgerStore) FindRecordsByProperty(ctx context.Context, typeID domain.PropertyType, value string) ([]domain.PaymentRecord, error) {
	var records []domain.PaymentRecord
	sub := s.db.Model(&domain.PaymentProperty{}).
		Select("payment_id").
		Where("type_id = ? AND value = ?", typeID, value)

	err := s.db.WithContext(ctx).
		Preload("Properties", orderByID).
		Where("id IN (?)", sub).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find payment records by property: %w", err)
	}
	return records, nil
}

// LinkRecordToOrder relates a record to an order; relinking the same pair is a no-op
func (s *GormLedgerStore) LinkRecordToOrder(ctx context.Context, record *domain.PaymentRecord, orderID uint) error {
	relation := domain.OrderPaymentRelation{OrderID: orderID, PaymentID: record.ID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_id"}}, DoNothing: true}).
		Create(&relation).Error
	if err != nil {
		return fmt.Errorf("failed to link payment %d to order %d: %w", record.ID, orderID, err)
	}
	return nil
}

// FindOrderIDByRecord returns the order a record is linked to
func (s *GormLedgerStore) FindOrderIDByRecord(ctx context.Context, recordID uint) (uint, error) {
	var relation domain.OrderPaymentRelation
	err := s.db.WithContext(ctx).Where("payment_id = ?", recordID).First(&relation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrOrderNotFound
		}
		return 0, fmt.Errorf("failed to find order relation: %w", err)
	}
	return relation.OrderID, nil
}

// UpdatePropertyValue sets the value of the record's property of the given type, creating it if missing
func (s *GormLedgerStore) UpdatePropertyValue(ctx context.Context, recordID uint, typeID domain.PropertyType, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.PaymentProperty{}).
			Where("payment_id = ? AND type_id = ?", recordID, typeID).
			Update("value", value)
		if res.Error != nil {
			return fmt.Errorf("failed to update payment property: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		prop := domain.PaymentProperty{PaymentID: recordID, TypeID: typeID, Value: value}
		if err := tx.Create(&prop).Error; err != nil {
			return fmt.Errorf("failed to create payment property: %w", err)
		}
		return nil
	})
}

// AutoMigrate creates or updates the ledger tables
func (s *GormLedgerStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&domain.PaymentRecord{},
		&domain.PaymentProperty{},
		&domain.OrderPaymentRelation{},
	)
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
