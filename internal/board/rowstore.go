// Package board holds the client-side reconciliation core of the task board:
// a keyed row store fed by change subscriptions, the filtered status
// projection, and the drag controller that moves cards between columns.
package board

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Order decides where ApplyInsert places a new row.
type Order int

const (
	// NewestFirst puts inserted rows at the front (task lists).
	NewestFirst Order = iota
	// OldestFirst appends inserted rows (comment threads).
	OldestFirst
)

// RowStore is an ordered set of rows keyed by id. It is the only writer of
// its own sequence; every mutation goes through the Apply methods. Display
// order is the iteration order of rows, oldest pair first.
type RowStore[T any] struct {
	mu      sync.RWMutex
	key     func(T) string
	order   Order
	rows    *orderedmap.OrderedMap[string, T]
	changes chan struct{}
}

// NewRowStore creates an empty store.
func NewRowStore[T any](key func(T) string, order Order) *RowStore[T] {
	return &RowStore[T]{
		key:     key,
		order:   order,
		rows:    orderedmap.New[string, T](),
		changes: make(chan struct{}, 1),
	}
}

// ApplyInsert adds row unless its id is already present.
func (s *RowStore[T]) ApplyInsert(row T) bool {
	id := s.key(row)
	s.mu.Lock()
	if _, ok := s.rows.Get(id); ok {
		s.mu.Unlock()
		return false
	}
	s.rows.Set(id, row)
	if s.order == NewestFirst {
		_ = s.rows.MoveToFront(id)
	}
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyUpdate replaces the row with the same id in place. Unknown ids are ignored.
func (s *RowStore[T]) ApplyUpdate(row T) bool {
	id := s.key(row)
	s.mu.Lock()
	pair := s.rows.GetPair(id)
	if pair != nil {
		pair.Value = row
	}
	s.mu.Unlock()
	if pair != nil {
		s.notify()
	}
	return pair != nil
}

// ApplyDelete removes the row with id. Absent ids are ignored.
func (s *RowStore[T]) ApplyDelete(id string) bool {
	s.mu.Lock()
	_, ok := s.rows.Delete(id)
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// ReplaceAll resyncs the store from a full listing. When rows repeats an id,
// the first occurrence wins.
func (s *RowStore[T]) ReplaceAll(rows []T) {
	fresh := orderedmap.New[string, T](len(rows))
	for _, row := range rows {
		id := s.key(row)
		if _, dup := fresh.Get(id); dup {
			continue
		}
		fresh.Set(id, row)
	}
	s.mu.Lock()
	s.rows = fresh
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the rows in display order.
func (s *RowStore[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, s.rows.Len())
	for pair := s.rows.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Get looks up a row by id.
func (s *RowStore[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Get(id)
}

// Len returns the number of rows.
func (s *RowStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Len()
}

// Changes fires after mutations. Bursts coalesce into a single signal, so
// readers should take a fresh Snapshot on every receive.
func (s *RowStore[T]) Changes() <-chan struct{} {
	return s.changes
}

func (s *RowStore[T]) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
