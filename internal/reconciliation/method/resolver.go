package method

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

// DefaultNamespace is the plugin namespace Payreto methods are registered under
const DefaultNamespace = "Payreto"

// Lookup resolves payment keys against an already loaded method set
type Lookup interface {
	ByKey(key string) (*domain.PaymentMethod, bool)
}

// Index is a method set keyed by payment key, built from a single registry read
type Index struct {
	byKey map[string]domain.PaymentMethod
	ids   map[uint]struct{}
}

// NewIndex builds an index; the first method registered for a key wins
func NewIndex(methods []domain.PaymentMethod) *Index {
	idx := &Index{
		byKey: make(map[string]domain.PaymentMethod, len(methods)),
		ids:   make(map[uint]struct{}, len(methods)),
	}
	for _, m := range methods {
		if _, ok := idx.byKey[m.PaymentKey]; !ok {
			idx.byKey[m.PaymentKey] = m
		}
		idx.ids[m.ID] = struct{}{}
	}
	return idx
}

// ByKey returns the method registered for an exact payment key
func (i *Index) ByKey(key string) (*domain.PaymentMethod, bool) {
	if strings.TrimSpace(key) == "" {
		return nil, false
	}
	m, ok := i.byKey[key]
	if !ok {
		return nil, false
	}
	return &m, true
}

// HasID reports whether a method with the given id is in the set
func (i *Index) HasID(id uint) bool {
	_, ok := i.ids[id]
	return ok
}

// Len returns the number of distinct payment keys
func (i *Index) Len() int {
	return len(i.byKey)
}

// Resolver looks up payment methods of one plugin namespace.
// Every call reads the registry; nothing is cached between calls.
type Resolver struct {
	registry  domain.MethodRegistry
	namespace string
}

// NewResolver creates a resolver for the given namespace
func NewResolver(registry domain.MethodRegistry, namespace string) *Resolver {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Resolver{registry: registry, namespace: namespace}
}

// Snapshot reads the registry once and indexes the result
func (r *Resolver) Snapshot(ctx context.Context) (*Index, error) {
	methods, err := r.registry.ListMethodsForPlugin(ctx, r.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods for %s: %w", r.namespace, err)
	}
	return NewIndex(methods), nil
}

// ResolveByKey returns the method registered for key or domain.ErrMethodNotFound.
// Blank keys never hit the registry.
func (r *Resolver) ResolveByKey(ctx context.Context, key string) (*domain.PaymentMethod, error) {
	if strings.TrimSpace(key) == "" {
		return nil, domain.ErrMethodNotFound
	}

	idx, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	m, ok := idx.ByKey(key)
	if !ok {
		return nil, domain.ErrMethodNotFound
	}
	return m, nil
}

// IsPluginMethod reports whether id belongs to a method of this namespace
func (r *Resolver) IsPluginMethod(ctx context.Context, id uint) (bool, error) {
	idx, err := r.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return idx.HasID(id), nil
}

// IsRecurring reports whether the payment key is a registration-based (recurring) product
func IsRecurring(paymentKey string) bool {
	switch paymentKey {
	case "PAYRETO_PPM_RC", "PAYRETO_DDS_RC", "PAYRETO_ACC_RC":
		return true
	}
	return false
}
