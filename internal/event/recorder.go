package event

import (
	"sync"
	"time"

	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

// Recorder stores every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	events  []Event
	changed chan struct{}
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
}

func (r *Recorder) OnStart()                    { r.add(Start()) }
func (r *Recorder) OnDetect(res scanerr.Result) { r.add(Detect(res)) }
func (r *Recorder) OnStop()                     { r.add(Stop()) }

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []Kind {
	evs := r.Events()
	out := make([]Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

// WaitFor blocks until pred holds for the recorded events or the timeout
// elapses. It returns the last snapshot and whether pred was satisfied.
func (r *Recorder) WaitFor(timeout time.Duration, pred func([]Event) bool) ([]Event, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		snapshot := append([]Event(nil), r.events...)
		changed := r.changed
		r.mu.Unlock()

		if pred(snapshot) {
			return snapshot, true
		}
		select {
		case <-changed:
		case <-deadline.C:
			return snapshot, false
		}
	}
}

// WaitStop waits until a stop event has been recorded.
func (r *Recorder) WaitStop(timeout time.Duration) ([]Event, bool) {
	return r.WaitFor(timeout, func(evs []Event) bool {
		for _, e := range evs {
			if e.Kind == KindStop {
				return true
			}
		}
		return false
	})
}
