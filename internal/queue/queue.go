package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO that accepts each key at most once.
// Items keep their insertion order; later duplicates are dropped, even
// after the first one was drained.
type Queue[T any] struct {
	items []T
	seen  map[string]bool
	key   func(T) string
	mu    sync.Mutex
}

// New creates a Queue deduplicating items by key
func New[T any](key func(T) string) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		seen:  make(map[string]bool),
		key:   key,
	}
}

// Add adds an item unless its key was already added
func (q *Queue[T]) Add(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	k := q.key(item)
	if q.seen[k] {
		return false
	}

	q.seen[k] = true
	q.items = append(q.items, item)
	return true
}

// Drain removes and returns every pending item in order
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = make([]T, 0)
	return items
}

// Len returns the current length of the queue
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
