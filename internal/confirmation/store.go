package confirmation

import (
	"context"
	stdErrors "errors"
	"sync"
	"time"
)

var ErrNotFound = stdErrors.New("attempt not found")

// Store keeps pending attempts. Expired attempts behave as missing.
type Store interface {
	Put(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, key string) (*Attempt, error)
	// Update replaces an existing attempt, failing with ErrNotFound when it
	// is gone.
	Update(ctx context.Context, a *Attempt) error
	// Take removes and returns the attempt. Of two concurrent calls for the
	// same key at most one succeeds.
	Take(ctx context.Context, key string) (*Attempt, error)
	Delete(ctx context.Context, key string) error
	// Sweep removes attempts expired at now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*Attempt
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{items: make(map[string]*Attempt), now: now}
}

func (s *MemoryStore) Put(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[a.Key] = a.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.live(key)
	if err != nil {
		return nil, err
	}
	return a.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.live(a.Key); err != nil {
		return err
	}
	s.items[a.Key] = a.clone()
	return nil
}

func (s *MemoryStore) Take(_ context.Context, key string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.live(key)
	if err != nil {
		return nil, err
	}
	delete(s.items, key)
	return a, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, a := range s.items {
		if a.Expired(now) {
			delete(s.items, key)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// live must be called with mu held. Expired entries are dropped on access.
func (s *MemoryStore) live(key string) (*Attempt, error) {
	a, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Expired(s.now()) {
		delete(s.items, key)
		return nil, ErrNotFound
	}
	return a, nil
}
