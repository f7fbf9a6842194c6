package store

import (
	"context"
	"sync"
)

// Compile-time check: *Memory must satisfy MemoryStore.
var _ MemoryStore = (*Memory)(nil)

// Memory is an in-process MemoryStore. It is used for dry runs and tests.
type Memory struct {
	mu     sync.RWMutex
	slots  map[string][]byte
	writes map[string]int
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		slots:  make(map[string][]byte),
		writes: make(map[string]int),
	}
}

func (m *Memory) Get(_ context.Context, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	value, ok := m.slots[slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Set(_ context.Context, slot string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.slots[slot] = append([]byte(nil), value...)
	m.writes[slot]++
	return nil
}

// Writes reports how many times slot has been written
func (m *Memory) Writes(slot string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[slot]
}

func (m *Memory) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
