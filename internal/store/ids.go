package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator supplies identifiers for tasks and history entries.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator returns time-ordered UUIDv7 strings.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SequentialIDs returns prefix000001, prefix000002, ... in order. Useful in
// tests where ids must be predictable.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

func (s *SequentialIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%06d", s.prefix, s.n)
}
