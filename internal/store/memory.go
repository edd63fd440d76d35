package store

import (
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process store. Failures can be injected per location or
// per value to exercise error handling.
type Memory struct {
	mu        sync.Mutex
	keys      map[string]map[string]Value
	openErrs  map[string]error
	readErrs  map[string]error
	openCount int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		keys:     make(map[string]map[string]Value),
		openErrs: make(map[string]error),
		readErrs: make(map[string]error),
	}
}

// Set stores value under location, creating the location if needed.
func (m *Memory) Set(location, name string, value Value) {
	loc := mustKey(location)

	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.keys[loc]
	if !ok {
		values = make(map[string]Value)
		m.keys[loc] = values
	}
	values[strings.ToLower(name)] = value
}

// CreateLocation creates an empty location.
func (m *Memory) CreateLocation(location string) {
	loc := mustKey(location)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[loc]; !ok {
		m.keys[loc] = make(map[string]Value)
	}
}

// FailOpen makes OpenReadOnly(location) return err.
func (m *Memory) FailOpen(location string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[mustKey(location)] = err
}

// FailRead makes GetValue(name) under location return err.
func (m *Memory) FailRead(location, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[mustKey(location)+"::"+strings.ToLower(name)] = err
}

// OpenHandles returns the number of handles opened and not yet closed.
func (m *Memory) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCount
}

// OpenReadOnly returns a handle over a copy of the values at location.
func (m *Memory) OpenReadOnly(location string) (Handle, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	key := loc.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.openErrs[key]; err != nil {
		return nil, err
	}

	values, ok := m.keys[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", loc, ErrLocationNotFound)
	}

	snapshot := make(map[string]Value, len(values))
	for name, v := range values {
		snapshot[name] = v
	}

	m.openCount++
	return &memoryHandle{store: m, location: key, values: snapshot}, nil
}

type memoryHandle struct {
	store    *Memory
	location string
	values   map[string]Value
	closed   bool
}

func (h *memoryHandle) GetValue(name string) (Value, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if h.closed {
		return Value{}, fmt.Errorf("handle for %s is closed", h.location)
	}
	if err := h.store.readErrs[h.location+"::"+strings.ToLower(name)]; err != nil {
		return Value{}, err
	}

	v, ok := h.values[strings.ToLower(name)]
	if !ok {
		return Value{}, fmt.Errorf("%s: %w", name, ErrValueNotFound)
	}
	return v, nil
}

func (h *memoryHandle) Close() error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.store.openCount--
	return nil
}

func mustKey(location string) string {
	loc, err := ParseLocation(location)
	if err != nil {
		panic(fmt.Sprintf("store: invalid location %q: %v", location, err))
	}
	return loc.Key()
}
