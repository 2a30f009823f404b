package storage

import (
	"context"
	"sync"
)

var _ Slot = (*MemorySlot)(nil)

// MemorySlot keeps the blob in process memory. Used in tests and for ephemeral CLI runs.
type MemorySlot struct {
	mu      sync.RWMutex
	name    string
	data    []byte
	written bool
}

func NewMemorySlot(name string) *MemorySlot {
	return &MemorySlot{
		name: name,
	}
}

// NewMemorySlotWithData returns a slot pre-populated with data, as if it was written before.
func NewMemorySlotWithData(name string, data []byte) *MemorySlot {
	s := NewMemorySlot(name)
	s.data = append([]byte(nil), data...)
	s.written = true
	return s
}

func (s *MemorySlot) Name() string {
	return s.name
}

func (s *MemorySlot) Read(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.written {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemorySlot) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.written = true
	return nil
}
