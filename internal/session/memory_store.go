package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps verification state in process. Used for local runs and tests.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	expires map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an in-process store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		expires: make(map[string]time.Time),
	}
}

// WithClock swaps the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) IsVerified(_ context.Context, sender string) (bool, error) {
	key := SenderKey(sender)
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(exp) {
		delete(s.expires, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) MarkVerified(_ context.Context, sender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[SenderKey(sender)] = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Revoke(_ context.Context, sender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, SenderKey(sender))
	return nil
}
