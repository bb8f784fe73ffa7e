// Package stack keeps one LIFO of staged copies per guarded path key, so
// nested guards on the same path restore in reverse capture order.
package stack

import (
	"sort"
	"sync"

	"github.com/fileguard-project/fileguard/internal/store"
	"github.com/fileguard-project/fileguard/pkg/errclass"
)

// Stack maps a path key to its outstanding staged copies, most recent last.
type Stack struct {
	mu      sync.Mutex
	entries map[string][]*store.StagedCopy
	total   int
}

// New creates an empty Stack.
func New() *Stack {
	return &Stack{entries: make(map[string][]*store.StagedCopy)}
}

// Push appends sc to key's sequence, creating it if absent.
func (s *Stack) Push(key string, sc *store.StagedCopy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append(s.entries[key], sc)
	s.total++
}

// Pop removes and returns the most recently pushed copy for key.
func (s *Stack) Pop(key string) (*store.StagedCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.entries[key]
	if len(seq) == 0 {
		return nil, errclass.ErrStackUnderflow.WithMessagef("no outstanding guard for %s", key)
	}
	top := seq[len(seq)-1]
	seq[len(seq)-1] = nil
	if len(seq) == 1 {
		delete(s.entries, key)
	} else {
		s.entries[key] = seq[:len(seq)-1]
	}
	s.total--
	return top, nil
}

// Peek returns the most recent copy for key without removing it.
func (s *Stack) Peek(key string) (*store.StagedCopy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.entries[key]
	if len(seq) == 0 {
		return nil, false
	}
	return seq[len(seq)-1], true
}

// Depth returns the number of outstanding copies for key.
func (s *Stack) Depth(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[key])
}

// Len returns the number of outstanding copies across all keys.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Keys returns the keys with outstanding copies, sorted.
func (s *Stack) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
