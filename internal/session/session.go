// Package session implements the stream-scanning state machine. A Session
// owns at most one capture resource at a time, samples its frames through a
// Scheduler, confirms stable reads and reports them to an event.Sink.
//
// All session state lives in a single control-loop goroutine. Public
// methods, scheduler callbacks and acquisition results reach it as
// messages, so no two ticks ever race and the capture resource is released
// exactly once. Sink callbacks run in order on a separate dispatch
// goroutine, so the loop never waits on host code.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/planner"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
	"github.com/MeKo-Tech/codescan/internal/scheduler"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session: closed")

// Detector scans one raw grayscale frame. *pipeline.Pipeline satisfies it.
type Detector interface {
	DetectFrame(pix []byte, width, height int) scanerr.Result
}

// Config holds the defaults applied when Start is given no thresholds.
type Config struct {
	Thresholds  planner.Thresholds
	Constraints capture.Constraints
}

// DefaultConfig returns default thresholds and rear-camera constraints.
func DefaultConfig() Config {
	return Config{
		Thresholds:  planner.DefaultThresholds(),
		Constraints: capture.DefaultConstraints(),
	}
}

// Deps are the collaborators a session drives. NewDetector, Clock and
// Logger are optional.
type Deps struct {
	Capture   capture.MediaCapture
	Surfaces  *capture.Surfaces
	Scheduler scheduler.Scheduler
	// Detector serves starts without explicit thresholds.
	Detector Detector
	// NewDetector builds the detector for a start's explicit thresholds.
	// Without it every start uses Detector.
	NewDetector func(planner.Thresholds) (Detector, error)
	Sink        event.Sink
	Clock       func() time.Time
	Logger      *slog.Logger
}

// Stats are cumulative counters for the session's lifetime.
type Stats struct {
	Starts        uint64
	Ticks         uint64
	Sampled       uint64
	RateLimited   uint64
	NoFrame       uint64
	Confirmations uint64
	Releases      uint64
}

type counters struct {
	starts, ticks, sampled, rateLimited, noFrame, confirmations, releases atomic.Uint64
}

// Session is a host-owned stream scanner. Create it with New and destroy it
// with Close.
type Session struct {
	id     string
	cfg    Config
	deps   Deps
	clock  func() time.Time
	logger *slog.Logger

	inbox   *mailbox[message]
	done    chan struct{}
	closing atomic.Bool
	running atomic.Bool
	state   atomic.Int32
	stats   counters

	// Sink delivery.
	events     *mailbox[func()]
	inCallback atomic.Bool
	flushMu    sync.Mutex
	flushed    *sync.Cond
	delivered  uint64
	drained    bool

	// Owned by the control loop.
	gen        uint64
	emitted    uint64
	th         planner.Thresholds
	detector   Detector
	surface    capture.Surface
	resource   capture.Resource
	cancelAcq  context.CancelFunc
	tick       scheduler.Handle
	confirm    stability
	lastSample time.Time
	queued     *startMsg
}

// New validates deps and starts the control loop.
func New(cfg Config, deps Deps) (*Session, error) {
	switch {
	case deps.Capture == nil:
		return nil, errors.New("session: media capture is required")
	case deps.Surfaces == nil:
		return nil, errors.New("session: surface registry is required")
	case deps.Scheduler == nil:
		return nil, errors.New("session: scheduler is required")
	case deps.Detector == nil:
		return nil, errors.New("session: detector is required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if deps.Sink == nil {
		deps.Sink = event.Discard
	}

	s := &Session{
		id:    uuid.NewString(),
		cfg:   cfg,
		deps:  deps,
		clock: deps.Clock,
		inbox:  newMailbox[message](),
		events: newMailbox[func()](),
		done:   make(chan struct{}),
	}
	s.flushed = sync.NewCond(&s.flushMu)
	if s.clock == nil {
		s.clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger.With("session_id", s.id)

	go s.loop()
	go s.dispatch()
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Starts:        s.stats.starts.Load(),
		Ticks:         s.stats.ticks.Load(),
		Sampled:       s.stats.sampled.Load(),
		RateLimited:   s.stats.rateLimited.Load(),
		NoFrame:       s.stats.noFrame.Load(),
		Confirmations: s.stats.confirmations.Load(),
		Releases:      s.stats.releases.Load(),
	}
}

// Start begins scanning on the surface registered as surfaceID. It is a
// no-op while a scan is acquiring or streaming. An unknown surface or
// invalid thresholds are reported as the returned error, before any event
// is emitted. Acquisition failures are reported through the sink.
//
// Explicit thresholds apply to the whole scan: sampling, confirmation and,
// when Deps.NewDetector is set, preprocessing.
//
// Start returns once the control loop has taken the request and the events
// it caused have reached the sink. Called while a sink callback is running,
// including from inside one, it does not wait for delivery.
func (s *Session) Start(surfaceID string, th *planner.Thresholds) error {
	nested := s.inCallback.Load()
	if s.closing.Load() {
		return scanerr.Wrap(scanerr.Internal, ErrClosed)
	}
	surface, ok := s.deps.Surfaces.Lookup(surfaceID)
	if !ok {
		return scanerr.Wrap(scanerr.InvalidVideoElement, fmt.Errorf("no surface %q", surfaceID))
	}
	thresholds := s.cfg.Thresholds
	det := s.deps.Detector
	if th != nil {
		if err := th.Validate(); err != nil {
			return scanerr.Wrap(scanerr.Internal, err)
		}
		thresholds = *th
		if s.deps.NewDetector != nil {
			d, err := s.deps.NewDetector(thresholds)
			if err != nil {
				return scanerr.Wrap(scanerr.Internal, fmt.Errorf("detector: %w", err))
			}
			det = d
		}
	}

	msg := &startMsg{surface: surface, th: thresholds, det: det, ack: newAck()}
	if !s.post(msg) {
		return scanerr.Wrap(scanerr.Internal, ErrClosed)
	}
	s.await(msg.ack, nested)
	return nil
}

// Stop ends the current scan. It may be called at any time from any
// goroutine. The running flag is cleared immediately, so at most one more
// tick can sample before the resource is released. Stop waits like Start;
// during acquisition the session is left Stopping and the resource is
// released, and stop emitted, once acquisition completes.
func (s *Session) Stop() {
	nested := s.inCallback.Load()
	s.running.Store(false)
	msg := &stopMsg{ack: newAck()}
	if s.post(msg) {
		s.await(msg.ack, nested)
	}
}

// Close stops any scan and ends the control loop. A resource whose
// acquisition completes after Close is released as soon as it arrives.
func (s *Session) Close() {
	nested := s.inCallback.Load()
	if !s.closing.Swap(true) {
		s.running.Store(false)
		s.post(closeMsg{})
	}
	<-s.done
	if !nested {
		s.flush(math.MaxUint64)
	}
}

// post enqueues msg unless the loop has shut down.
func (s *Session) post(msg message) bool { return s.inbox.put(msg) }

// await blocks until the loop has handled the request behind a and, unless
// nested, the events emitted up to then have been delivered. A call made
// while a sink callback runs is treated as nested: that callback cannot
// return before the events queued behind it are delivered.
func (s *Session) await(a *ack, nested bool) {
	seq := uint64(math.MaxUint64)
	select {
	case <-a.done:
		seq = a.seq
	case <-s.done:
	}
	if !nested {
		s.flush(seq)
	}
}

// flush waits until seq events have been delivered or the dispatcher has
// drained.
func (s *Session) flush(seq uint64) {
	s.flushMu.Lock()
	for s.delivered < seq && !s.drained {
		s.flushed.Wait()
	}
	s.flushMu.Unlock()
}

// dispatch delivers emitted events in order until the loop has exited and
// the queue is empty.
func (s *Session) dispatch() {
	for {
		batch, ok := s.events.take()
		if !ok {
			break
		}
		for _, fn := range batch {
			s.inCallback.Store(true)
			fn()
			s.inCallback.Store(false)

			s.flushMu.Lock()
			s.delivered++
			s.flushed.Broadcast()
			s.flushMu.Unlock()
		}
	}
	s.flushMu.Lock()
	s.drained = true
	s.flushed.Broadcast()
	s.flushMu.Unlock()
}

// barrier returns once every message posted before it has been handled.
func (s *Session) barrier() {
	nested := s.inCallback.Load()
	msg := &syncMsg{ack: newAck()}
	if s.post(msg) {
		s.await(msg.ack, nested)
	}
}
