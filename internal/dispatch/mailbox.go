package dispatch

import (
	"context"
	"sync"
)

// mailbox is an unbounded FIFO queue. Put never blocks; Get waits for an
// item or for ctx to end.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{} // holds at most one pending wake-up
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{notify: make(chan struct{}, 1)}
}

// Put appends v and wakes a waiting Get.
func (m *mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.items = append(m.items, v)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest item.
func (m *mailbox[T]) Get(ctx context.Context) (T, error) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			v := m.items[0]
			var zero T
			m.items[0] = zero
			m.items = m.items[1:]
			if len(m.items) == 0 {
				m.items = nil // let the backing array go
			}
			m.mu.Unlock()
			return v, nil
		}
		m.mu.Unlock()

		select {
		case <-m.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (m *mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
