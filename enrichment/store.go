package enrichment

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrContactNotFound is returned by stores for unknown contact ids.
var ErrContactNotFound = errors.New("contact not found")

// Store persists contacts. Implementations must be safe for concurrent use.
type Store interface {
	GetContact(ctx context.Context, id int64) (*Contact, error)
	UpdateContact(ctx context.Context, c *Contact) error
	// CountByStatus returns the number of contacts per enrichment status.
	// Contacts without a status count as pending.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// MemoryStore is an in-process Store. It hands out copies so callers never
// share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[int64]*Contact
}

// NewMemoryStore creates a store seeded with contacts.
func NewMemoryStore(contacts ...*Contact) *MemoryStore {
	s := &MemoryStore{contacts: make(map[int64]*Contact, len(contacts))}
	for _, c := range contacts {
		s.contacts[c.ID] = c.Clone()
	}
	return s
}

func (s *MemoryStore) GetContact(_ context.Context, id int64) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) UpdateContact(_ context.Context, c *Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[c.ID]; !ok {
		return ErrContactNotFound
	}
	s.contacts[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, c := range s.contacts {
		counts[c.CurrentStatus()]++
	}
	return counts, nil
}

// Contacts returns copies of all contacts ordered by id.
func (s *MemoryStore) Contacts() []*Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
