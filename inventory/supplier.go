// supplier.go - Supplier registry. Suppliers are reference data for
// purchases; archiving hides them from pickers without touching history.
package inventory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artisan/ledger-engine/ledger"
)

type SupplierID string

type Supplier struct {
	ID         SupplierID
	Name       string
	StoreURL   string
	Phone      string
	IsArchived bool
	CreatedAt  time.Time
}

type SupplierRegistry struct {
	mu        sync.RWMutex
	suppliers map[SupplierID]*Supplier
}

func NewSupplierRegistry() *SupplierRegistry {
	return &SupplierRegistry{suppliers: make(map[SupplierID]*Supplier)}
}

func (r *SupplierRegistry) Create(s Supplier) (SupplierID, error) {
	if s.Name == "" {
		return "", &ledger.ValidationError{Field: "name", Message: "name is required"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = SupplierID("sup-" + uuid.NewString())
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	stored := s
	r.suppliers[s.ID] = &stored
	return s.ID, nil
}

// Restore loads a persisted supplier as-is. Boot-time rehydration only.
func (r *SupplierRegistry) Restore(s Supplier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := s
	r.suppliers[s.ID] = &stored
}

func (r *SupplierRegistry) Get(id SupplierID) (Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, ledger.ErrSupplierNotFound
	}
	return *s, nil
}

func (r *SupplierRegistry) List(includeArchived bool) []Supplier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Supplier
	for _, s := range r.suppliers {
		if s.IsArchived && !includeArchived {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (r *SupplierRegistry) Archive(id SupplierID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return ledger.ErrSupplierNotFound
	}
	s.IsArchived = true
	return nil
}
