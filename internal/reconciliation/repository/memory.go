package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// MemoryStore is an in-process implementation of every store contract,
// used for local runs without a database and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    uint
	records   map[uint]domain.PaymentRecord
	relations map[uint]uint
	methods   []domain.PaymentMethod
	orders    map[uint]domain.Order
	countries []domain.Country
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[uint]domain.PaymentRecord),
		relations: make(map[uint]uint),
		orders:    make(map[uint]domain.Order),
	}
}

// AddMethod registers a payment method
func (s *MemoryStore) AddMethod(m domain.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = append(s.methods, m)
}

// AddOrder stores an order
func (s *MemoryStore) AddOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// AddCountry stores a country
func (s *MemoryStore) AddCountry(c domain.Country) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries = append(s.countries, c)
}

// RecordCount returns the number of stored ledger records
func (s *MemoryStore) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) CreateRecord(ctx context.Context, record *domain.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()
	record.ID = s.nextID
	record.Hash = uuid.NewString()
	record.CreatedAt = now
	record.UpdatedAt = now
	for i := range record.Properties {
		record.Properties[i].PaymentID = record.ID
	}
	s.records[record.ID] = cloneRecord(*record)
	return nil
}

func (s *MemoryStore) FindRecordByID(ctx context.Context, id uint) (*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	out := cloneRecord(r)
	return &out, nil
}

func (s *MemoryStore) FindRecordsByProperty(ctx context.Context, typeID domain.PropertyType, value string) ([]domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PaymentRecord
	for _, r := range s.records {
		for _, p := range r.Properties {
			if p.TypeID == typeID && p.Value == value {
				out = append(out, cloneRecord(r))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) LinkRecordToOrder(ctx context.Context, record *domain.PaymentRecord, orderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relations[record.ID]; !ok {
		s.relations[record.ID] = orderID
	}
	return nil
}

func (s *MemoryStore) FindOrderIDByRecord(ctx context.Context, recordID uint) (uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderID, ok := s.relations[recordID]
	if !ok {
		return 0, domain.ErrOrderNotFound
	}
	return orderID, nil
}

func (s *MemoryStore) UpdatePropertyValue(ctx context.Context, recordID uint, typeID domain.PropertyType, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	r.SetPropertyValue(typeID, value)
	for i := range r.Properties {
		r.Properties[i].PaymentID = recordID
	}
	r.UpdatedAt = time.Now()
	s.records[recordID] = r
	return nil
}

func (s *MemoryStore) ListMethodsForPlugin(ctx context.Context, namespace string) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PaymentMethod
	for _, m := range s.methods {
		if m.PluginKey == namespace {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindOrderByID(ctx context.Context, id uint) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (s *MemoryStore) FindCountryByISOCode(ctx context.Context, code string, kind domain.ISOCodeKind) (*domain.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.countries {
		candidate := c.IsoCode2
		if kind == domain.ISO3 {
			candidate = c.IsoCode3
		}
		if strings.EqualFold(candidate, strings.TrimSpace(code)) {
			out := c
			return &out, nil
		}
	}
	return nil, domain.ErrCountryNotFound
}

func cloneRecord(r domain.PaymentRecord) domain.PaymentRecord {
	r.Properties = append([]domain.PaymentProperty(nil), r.Properties...)
	if r.ParentID != nil {
		parent := *r.ParentID
		r.ParentID = &parent
	}
	return r
}
