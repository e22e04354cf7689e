package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"receitas/internal/core"
	"receitas/internal/storage"
)

// Store keeps entries in process memory. Ids are assigned sequentially.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Entry
}

var _ storage.Store = (*Store)(nil)

func New(seed ...core.Entry) *Store {
	s := &Store{items: make(map[int64]core.Entry)}
	for _, e := range seed {
		e.ID = 0
		_, _ = s.Upsert(context.Background(), e)
	}
	return s
}

func (s *Store) Get(_ context.Context, id int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Entry{}, core.NotFound("get entry", fmt.Sprintf("no entry with id %d", id))
	}
	return e, nil
}

func (s *Store) List(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(core.Entry) bool { return true }), nil
}

func (s *Store) ListByDescription(_ context.Context, description string) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.DescriptionKey(description)
	return s.sorted(func(e core.Entry) bool {
		return core.DescriptionKey(e.Description) == key
	}), nil
}

// Upsert stores a copy of e, assigning the next id to new entries.
func (s *Store) Upsert(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.IsNew() {
		s.nextID++
		e.ID = s.nextID
	} else if e.ID > s.nextID {
		s.nextID = e.ID
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) Delete(_ context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, e.ID)
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) sorted(keep func(core.Entry) bool) []core.Entry {
	out := make([]core.Entry, 0, len(s.items))
	for _, e := range s.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
