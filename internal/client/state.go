package client

import (
	"context"
	"sync"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

// State caches the server's list. Local records change only after the server
// confirms a mutation, and always take the server's copy.
type State struct {
	api API

	// opMu serializes round-trips so two mutations never reorder.
	opMu sync.Mutex

	mu      sync.RWMutex
	items   []items.Item
	loading bool
	err     error
}

// NewState returns an empty State backed by api.
func NewState(api API) *State {
	return &State{api: api, items: []items.Item{}}
}

// Load replaces the local collection with the server's list.
func (s *State) Load(ctx context.Context, f items.Filter) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	list, err := s.api.List(ctx, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	s.items = append([]items.Item{}, list...)
	return nil
}

// Create adds the server-returned record.
func (s *State) Create(ctx context.Context, in items.NewItem) (items.Item, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	it, err := s.api.Create(ctx, in)
	if err != nil {
		s.fail(err)
		return items.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	if i := s.index(it.ID); i >= 0 {
		s.items[i] = it
	} else {
		s.items = append(s.items, it)
	}
	return it, nil
}

// Update applies p on the server and replaces the local record with the result.
func (s *State) Update(ctx context.Context, id int64, p items.Patch) (items.Item, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	it, err := s.api.Update(ctx, id, p)
	if err != nil {
		s.fail(err)
		return items.Item{}, err
	}
	s.replace(it)
	return it, nil
}

// Toggle flips purchased on the server and replaces the local record with the result.
func (s *State) Toggle(ctx context.Context, id int64) (items.Item, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	it, err := s.api.Toggle(ctx, id)
	if err != nil {
		s.fail(err)
		return items.Item{}, err
	}
	s.replace(it)
	return it, nil
}

// Delete removes the item on the server, then locally.
func (s *State) Delete(ctx context.Context, id int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.api.Delete(ctx, id); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	if i := s.index(id); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	return nil
}

// Items returns a copy of the local collection in server order.
func (s *State) Items() []items.Item {
	return s.filter(func(items.Item) bool { return true })
}

// Remaining returns the items not yet purchased.
func (s *State) Remaining() []items.Item {
	return s.filter(func(it items.Item) bool { return !it.Purchased })
}

// Purchased returns the purchased items.
func (s *State) Purchased() []items.Item {
	return s.filter(func(it items.Item) bool { return it.Purchased })
}

// Loading reports whether a Load is in flight.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error from the last failed operation, cleared by the next success.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *State) filter(keep func(items.Item) bool) []items.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]items.Item, 0, len(s.items))
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (s *State) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *State) replace(it items.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	if i := s.index(it.ID); i >= 0 {
		s.items[i] = it
	}
}

// index must be called with mu held.
func (s *State) index(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
