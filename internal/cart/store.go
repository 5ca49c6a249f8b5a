package cart

import (
	"sync"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

// store holds the snapshot for one actor. Only Engine writes to it and every
// write replaces the item slice wholesale.
type store struct {
	mu       sync.RWMutex
	items    []CartItem
	loaded   bool
	lastErr  *pkgerrors.Error
	inflight int
}

func newStore() *store {
	return &store{items: []CartItem{}}
}

func (s *store) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]CartItem, len(s.items))
	copy(items, s.items)
	count, price := totals(items)
	return Snapshot{
		Items:          items,
		TotalItemCount: count,
		TotalPrice:     price,
		IsLoading:      s.inflight > 0,
		LastError:      s.lastErr,
		Loaded:         s.loaded,
	}
}

// begin marks an operation in flight; the returned func must be called once
// it settles.
func (s *store) begin() func() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inflight--
			s.mu.Unlock()
		})
	}
}

func (s *store) replace(items []CartItem) {
	next := make([]CartItem, len(items))
	copy(next, items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = next
	s.loaded = true
	s.lastErr = nil
}

func (s *store) setError(err *pkgerrors.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func (s *store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []CartItem{}
	s.lastErr = nil
}
