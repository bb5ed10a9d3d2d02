package invoice

import (
	"context"
	"sort"
	"sync"
)

// Store persists invoices together with their items.
type Store interface {
	Create(ctx context.Context, inv Invoice) error
	Update(ctx context.Context, inv Invoice) error
	Get(ctx context.Context, id string) (Invoice, error)
	// List returns matching invoices, newest first.
	List(ctx context.Context, f Filter) ([]Invoice, error)
	Delete(ctx context.Context, id string) error
	StatsByClient(ctx context.Context, clientID string) (ClientStats, error)
	// DetachClient clears the client reference on every invoice of clientID.
	// The client name snapshot stays.
	DetachClient(ctx context.Context, clientID string) (int, error)
}

// MemoryStore keeps invoices in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]Invoice
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[string]Invoice)}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, inv Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.numberTaken(inv.Number, inv.ID) {
		return ErrConflict
	}
	s.invoices[inv.ID] = clone(inv)
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, inv Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return ErrNotFound
	}
	if s.numberTaken(inv.Number, inv.ID) {
		return ErrConflict
	}
	s.invoices[inv.ID] = clone(inv)
	return nil
}

func (s *MemoryStore) numberTaken(number, exceptID string) bool {
	for id, existing := range s.invoices {
		if id != exceptID && existing.Number == number {
			return true
		}
	}
	return false
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return clone(inv), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, f Filter) ([]Invoice, error) {
	s.mu.RLock()
	out := make([]Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		if f.Matches(inv) {
			out = append(out, clone(inv))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number > out[j].Number
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(s.invoices, id)
	return nil
}

// StatsByClient implements Store.
func (s *MemoryStore) StatsByClient(_ context.Context, clientID string) (ClientStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats ClientStats
	for _, inv := range s.invoices {
		if inv.ClientID == clientID {
			stats.TotalInvoices++
			stats.TotalAmount = stats.TotalAmount.Add(inv.GrandTotal)
		}
	}
	return stats, nil
}

// DetachClient implements Store.
func (s *MemoryStore) DetachClient(_ context.Context, clientID string) (int, error) {
	if clientID == "" {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, inv := range s.invoices {
		if inv.ClientID == clientID {
			inv.ClientID = ""
			s.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

func clone(inv Invoice) Invoice {
	inv.Items = append([]Item(nil), inv.Items...)
	return inv
}
