package statestore

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type transient struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store, used by tests and the memory driver.
type MemoryStore struct {
	mu         sync.Mutex
	options    map[string][]byte
	transients map[string]transient
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		options:    make(map[string][]byte),
		transients: make(map[string]transient),
		now:        time.Now,
	}
}

// WithClock replaces the clock used for transient expiry.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStore) GetOption(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.options[key]
	return bytes.Clone(v), ok, nil
}

func (s *MemoryStore) SetOption(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[key] = bytes.Clone(value)
	return nil
}

func (s *MemoryStore) DeleteOption(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.options, key)
	return nil
}

func (s *MemoryStore) GetTransient(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transients[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(t.expiresAt) {
		delete(s.transients, key)
		return nil, false, nil
	}
	return bytes.Clone(t.value), true, nil
}

func (s *MemoryStore) SetTransient(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transients[key] = transient{value: bytes.Clone(value), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) DeleteTransient(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transients, key)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
