// Package scheduler provides one-shot "next tick" callbacks, the Go
// counterpart of a host's per-frame animation callback.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies a pending request. The zero Handle is never issued.
type Handle uint64

// Scheduler runs each requested callback once, at the next opportunity.
type Scheduler interface {
	RequestNextTick(fn func()) Handle
	// Cancel drops a pending request. Cancelling a request that already ran
	// is a no-op.
	Cancel(h Handle)
}

type queue struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]func()
}

func (q *queue) add(fn func()) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[Handle]func())
	}
	q.next++
	q.pending[q.next] = fn
	return q.next
}

func (q *queue) cancel(h Handle) {
	q.mu.Lock()
	delete(q.pending, h)
	q.mu.Unlock()
}

// drain removes and returns the pending callbacks in request order.
func (q *queue) drain() []func() {
	q.mu.Lock()
	handles := make([]Handle, 0, len(q.pending))
	for h := range q.pending {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	fns := make([]func(), len(handles))
	for i, h := range handles {
		fns[i] = q.pending[h]
		delete(q.pending, h)
	}
	q.mu.Unlock()
	return fns
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Frame fires pending callbacks once per frame period on its own goroutine.
// Callbacks must return quickly.
type Frame struct {
	q    queue
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewFrame starts a frame clock at fps frames per second.
func NewFrame(fps float64) *Frame {
	if fps <= 0 {
		fps = 60
	}
	f := &Frame{stop: make(chan struct{}), done: make(chan struct{})}
	go f.run(time.Duration(float64(time.Second) / fps))
	return f
}

func (f *Frame) RequestNextTick(fn func()) Handle { return f.q.add(fn) }
func (f *Frame) Cancel(h Handle)                  { f.q.cancel(h) }

// Close stops the clock. Pending callbacks never run.
func (f *Frame) Close() {
	f.once.Do(func() {
		close(f.stop)
		<-f.done
	})
}

func (f *Frame) run(period time.Duration) {
	defer close(f.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			for _, fn := range f.q.drain() {
				fn()
			}
		}
	}
}

// Manual fires callbacks only when Fire is called.
type Manual struct {
	q queue
}

// NewManual returns an idle manual scheduler.
func NewManual() *Manual { return &Manual{} }

func (m *Manual) RequestNextTick(fn func()) Handle { return m.q.add(fn) }
func (m *Manual) Cancel(h Handle)                  { m.q.cancel(h) }

// Pending returns the number of outstanding requests.
func (m *Manual) Pending() int { return m.q.len() }

// Fire runs every callback requested before the call and returns how many
// ran. Callbacks requested while firing wait for the next Fire.
func (m *Manual) Fire() int {
	fns := m.q.drain()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
