package widget

import (
	"context"
	"sync"
)

// MemStore keeps widgets in a slice. Lookups are linear scans; a single
// mutex spans each operation's full read-modify-write.
type MemStore struct {
	mu    sync.RWMutex
	items []Widget
}

func NewMemStore() *MemStore {
	return &MemStore{items: make([]Widget, 0, 16)}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *MemStore) List(ctx context.Context) ([]Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

func (s *MemStore) FindByName(ctx context.Context, name string) (Widget, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(name); i >= 0 {
		return s.items[i].clone(), true, nil
	}
	return Widget{}, false, nil
}

func (s *MemStore) Upsert(ctx context.Context, w Widget) (Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(w)
	return w, nil
}

func (s *MemStore) UpsertAll(ctx context.Context, ws []Widget) ([]Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range ws {
		s.upsertLocked(w)
	}
	return ws, nil
}

func (s *MemStore) DeleteByName(ctx context.Context, name string) ([]Widget, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.removeLocked(name)
	return s.snapshot(), removed, nil
}

func (s *MemStore) Update(ctx context.Context, name string, p Patch) (Widget, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return Widget{}, false, nil
	}
	p.Apply(&s.items[i])
	return s.items[i].clone(), true, nil
}

func (s *MemStore) upsertLocked(w Widget) {
	s.removeLocked(w.Name)
	s.items = append(s.items, w.clone())
}

func (s *MemStore) removeLocked(name string) bool {
	n := 0
	for _, w := range s.items {
		if w.Name != name {
			s.items[n] = w
			n++
		}
	}
	removed := n < len(s.items)
	clear(s.items[n:])
	s.items = s.items[:n]
	return removed
}

func (s *MemStore) indexOf(name string) int {
	for i := range s.items {
		if s.items[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *MemStore) snapshot() []Widget {
	out := make([]Widget, 0, len(s.items))
	for _, w := range s.items {
		out = append(out, w.clone())
	}
	return out
}
