// Package storage provides the document cores the query layer runs on: an
// in-memory core with snapshot persistence and a Badger-backed core, both
// answering through the same success/data/error envelope.
package storage

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Store hands out one Core per named collection
type Store interface {
	Collection(name string) (Core, error)
	Names() []string
	Close() error
}

// MemoryStore keeps collections in memory and optionally snapshots them to a
// single file, on Close and on a background interval.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*MemoryCore
	closed      bool

	// Configuration
	memoryLimit    int64
	dataFile       string
	backgroundSave bool
	saveInterval   time.Duration

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewMemoryStore creates a memory store
func NewMemoryStore(options ...StorageOption) *MemoryStore {
	store := &MemoryStore{
		collections:  make(map[string]*MemoryCore),
		saveInterval: 5 * time.Minute,
		stopChan:     make(chan struct{}),
	}

	for _, option := range options {
		option(store)
	}

	return store
}

// Collection returns the core of a collection, creating it on first use
func (s *MemoryStore) Collection(name string) (Core, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	if core, exists := s.collections[name]; exists {
		return core, nil
	}
	core := NewMemoryCore(name)
	core.SetMemoryLimit(s.memoryLimit)
	s.collections[name] = core
	return core, nil
}

// Names returns the collection names in sorted order
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops background workers and writes a final snapshot when a data file is configured
func (s *MemoryStore) Close() error {
	s.StopBackgroundWorkers()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.dataFile == "" {
		return nil
	}
	if err := s.SaveToFile(s.dataFile); err != nil {
		return fmt.Errorf("failed to save snapshot on close: %w", err)
	}
	log.Printf("INFO: saved snapshot to %s", s.dataFile)
	return nil
}

// DataFile returns the configured snapshot file, if any
func (s *MemoryStore) DataFile() string {
	return s.dataFile
}

// isDirty reports whether any collection changed since the last snapshot
func (s *MemoryStore) isDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, core := range s.collections {
		core.mu.RLock()
		dirty := core.dirty
		core.mu.RUnlock()
		if dirty {
			return true
		}
	}
	return false
}
