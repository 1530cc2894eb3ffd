package session

import "sync"

// mailbox is an unbounded FIFO whose close is atomic with respect to put:
// once close returns, every later put fails and the receiver sees the items
// that made it in.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{ready: make(chan struct{}, 1)}
}

// put appends v and reports whether the mailbox was still open.
func (m *mailbox[T]) put(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, v)
	m.mu.Unlock()
	m.signal()
	return true
}

// take blocks until items are queued and returns all of them. After close
// it returns what is left, then false.
func (m *mailbox[T]) take() ([]T, bool) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			items := m.items
			m.items = nil
			m.mu.Unlock()
			return items, true
		}
		if m.closed {
			m.mu.Unlock()
			return nil, false
		}
		m.mu.Unlock()
		<-m.ready
	}
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox[T]) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
