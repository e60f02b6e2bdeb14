package memory

import (
	"context"
	"sync"

	"prepsync/internal/domain"
)

// Store is the in-memory implementation of app.Store. It backs tests and the
// degraded mode entered when no durable engine could be opened: persistence
// is lost on exit, but the application keeps working.
type Store struct {
	mu         sync.RWMutex
	version    int
	partitions map[string]map[string][]byte
}

// Open creates the store at the given schema version with the given
// partitions. Reopening an existing Store with a higher version and more
// partitions adds the missing ones and leaves existing data untouched;
// running it repeatedly is safe.
func Open(version int, partitions []string) *Store {
	s := &Store{partitions: make(map[string]map[string][]byte)}
	s.Upgrade(version, partitions)
	return s
}

// Upgrade applies a schema version bump in place. Idempotent.
func (s *Store) Upgrade(version int, partitions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.version {
		s.version = version
	}
	for _, partition := range partitions {
		if _, ok := s.partitions[partition]; !ok {
			s.partitions[partition] = make(map[string][]byte)
		}
	}
}

// Version returns the current schema version.
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Put(_ context.Context, partition, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.partitions[partition]
	if !ok {
		return domain.ErrPartitionUnknown
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	records[key] = buf
	return nil
}

func (s *Store) Get(_ context.Context, partition, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.partitions[partition]
	if !ok {
		return nil, false, domain.ErrPartitionUnknown
	}
	value, ok := records[key]
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, true, nil
}

func (s *Store) GetAll(_ context.Context, partition string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.partitions[partition]
	if !ok {
		return nil, domain.ErrPartitionUnknown
	}
	out := make(map[string][]byte, len(records))
	for key, value := range records {
		buf := make([]byte, len(value))
		copy(buf, value)
		out[key] = buf
	}
	return out, nil
}

func (s *Store) Remove(_ context.Context, partition, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.partitions[partition]
	if !ok {
		return domain.ErrPartitionUnknown
	}
	delete(records, key)
	return nil
}
