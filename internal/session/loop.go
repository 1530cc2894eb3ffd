package session

import (
	"context"
	"errors"
	"time"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/frame"
	"github.com/MeKo-Tech/codescan/internal/metrics"
	"github.com/MeKo-Tech/codescan/internal/planner"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

type message any

// ack is closed by the loop once a request is handled; seq counts the
// events emitted by then.
type ack struct {
	done chan struct{}
	seq  uint64
}

func newAck() *ack { return &ack{done: make(chan struct{})} }

type startMsg struct {
	surface capture.Surface
	th      planner.Thresholds
	det     Detector
	ack     *ack
}

type stopMsg struct{ ack *ack }

type syncMsg struct{ ack *ack }

type closeMsg struct{}

type tickMsg struct{ gen uint64 }

type acquiredMsg struct {
	gen      uint64
	resource capture.Resource
	err      error
}

func (s *Session) loop() {
	defer func() {
		s.events.close()
		close(s.done)
	}()
	for {
		batch, ok := s.inbox.take()
		if !ok {
			return
		}
		for i, msg := range batch {
			if s.handle(msg) {
				s.shutdown(batch[i+1:])
				return
			}
		}
	}
}

// handle processes one message and reports whether it was a close.
func (s *Session) handle(msg message) bool {
	switch m := msg.(type) {
	case *startMsg:
		s.handleStart(m)
		s.reply(m.ack)
	case *stopMsg:
		s.handleStop()
		s.reply(m.ack)
	case *syncMsg:
		s.reply(m.ack)
	case tickMsg:
		s.handleTick(m)
	case acquiredMsg:
		s.handleAcquired(m)
	case closeMsg:
		s.queued = nil
		s.handleStop()
		if s.State() == StateStopping {
			// acquisition still pending; the resource is released when
			// it arrives
			s.finish()
		}
		if s.cancelAcq != nil {
			s.cancelAcq()
			s.cancelAcq = nil
		}
		return true
	}
	return false
}

func (s *Session) reply(a *ack) {
	a.seq = s.emitted
	close(a.done)
}

// shutdown closes the inbox and settles everything queued behind the
// close. Acquisitions that finish later fail to post and release their
// resource themselves.
func (s *Session) shutdown(rest []message) {
	s.inbox.close()
	for {
		for _, msg := range rest {
			switch m := msg.(type) {
			case acquiredMsg:
				if m.resource != nil {
					s.release(m.resource)
				}
			case *startMsg:
				s.reply(m.ack)
			case *stopMsg:
				s.reply(m.ack)
			case *syncMsg:
				s.reply(m.ack)
			}
		}
		var ok bool
		if rest, ok = s.inbox.take(); !ok {
			return
		}
	}
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug("Session state changed", "from", prev.String(), "state", st.String())
	}
}

// emit queues fn for the dispatch goroutine.
func (s *Session) emit(fn func()) {
	s.emitted++
	s.events.put(fn)
}

func (s *Session) handleStart(m *startMsg) {
	state := s.State()
	if state.active() {
		s.logger.Debug("Start ignored", "state", state.String())
		return
	}
	if state == StateStopping {
		s.queued = m
		return
	}

	s.gen++
	gen := s.gen
	s.th = m.th
	s.detector = m.det
	s.surface = m.surface
	s.confirm = stability{required: m.th.RequiredConsecutiveDetections}
	s.lastSample = time.Time{}
	s.running.Store(true)
	s.stats.starts.Add(1)
	s.setState(StateAcquiring)
	s.logger.Info("Stream scan starting", "surface", m.surface.ID())
	s.emit(s.deps.Sink.OnStart)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelAcq = cancel
	constraints := s.cfg.Constraints
	go func() {
		res, err := s.deps.Capture.Acquire(ctx, constraints)
		if !s.post(acquiredMsg{gen: gen, resource: res, err: err}) && res != nil {
			s.release(res)
		}
	}()
}

func (s *Session) handleAcquired(m acquiredMsg) {
	if m.gen != s.gen {
		if m.resource != nil {
			capture.StopAll(m.resource)
		}
		return
	}
	if s.cancelAcq != nil {
		s.cancelAcq()
		s.cancelAcq = nil
	}

	switch s.State() {
	case StateStopping:
		if m.resource != nil {
			s.release(m.resource)
		}
		s.finish()
		return
	case StateAcquiring:
	default:
		if m.resource != nil {
			capture.StopAll(m.resource)
		}
		return
	}

	if m.err != nil {
		s.fail(capture.Classify(m.err), m.err)
		return
	}
	if err := s.surface.Bind(m.resource); err != nil {
		s.release(m.resource)
		s.fail(capture.Classify(err), err)
		return
	}

	s.resource = m.resource
	s.setState(StateStreaming)
	metrics.SessionStreaming(true)
	s.logger.Info("Stream scan streaming", "surface", s.surface.ID())
	s.schedule()
}

// fail reports an acquisition failure and returns to Idle.
func (s *Session) fail(code scanerr.Code, err error) {
	s.setState(StateError)
	s.running.Store(false)
	s.logger.Warn("Stream scan failed", "code", string(code), "error", err)
	s.emit(func() { s.deps.Sink.OnDetect(scanerr.Failure(scanerr.Wrap(code, err))) })
	s.finish()
}

// finish emits stop and settles in Idle, then runs a queued start.
func (s *Session) finish() {
	s.surface = nil
	s.confirm.reset()
	s.setState(StateIdle)
	s.emit(s.deps.Sink.OnStop)
	s.logger.Info("Stream scan stopped")

	if q := s.queued; q != nil && !s.closing.Load() {
		s.queued = nil
		s.handleStart(q)
	}
}

func (s *Session) release(r capture.Resource) {
	capture.StopAll(r)
	s.stats.releases.Add(1)
}

func (s *Session) handleStop() {
	switch s.State() {
	case StateAcquiring:
		s.running.Store(false)
		s.setState(StateStopping)
		if s.cancelAcq != nil {
			s.cancelAcq()
		}
	case StateStreaming:
		s.running.Store(false)
		s.setState(StateStopping)
		if s.tick != 0 {
			s.deps.Scheduler.Cancel(s.tick)
			s.tick = 0
		}
		s.surface.Unbind()
		s.release(s.resource)
		s.resource = nil
		metrics.SessionStreaming(false)
		s.finish()
	default:
		s.queued = nil
	}
}

func (s *Session) schedule() {
	gen := s.gen
	s.tick = s.deps.Scheduler.RequestNextTick(func() {
		s.post(tickMsg{gen: gen})
	})
}

func (s *Session) handleTick(m tickMsg) {
	if m.gen != s.gen {
		return
	}
	s.tick = 0
	if s.State() != StateStreaming || !s.running.Load() {
		return
	}
	s.stats.ticks.Add(1)

	now := s.clock()
	if !s.lastSample.IsZero() && now.Sub(s.lastSample) < s.th.MinSampleInterval {
		s.stats.rateLimited.Add(1)
		metrics.StreamTick(metrics.TickRateLimited)
		s.schedule()
		return
	}
	s.lastSample = now

	s.sample()

	if s.running.Load() && s.State() == StateStreaming {
		s.schedule()
	}
}

func (s *Session) sample() {
	rgba, w, h, err := s.surface.Snapshot()
	if err != nil {
		s.stats.noFrame.Add(1)
		metrics.StreamTick(metrics.TickNoFrame)
		if !errors.Is(err, capture.ErrNoFrame) {
			s.logger.Debug("Snapshot failed", "error", err)
		}
		return
	}
	buf, err := frame.FromRGBA(rgba, w, h)
	if err != nil {
		s.stats.noFrame.Add(1)
		metrics.StreamTick(metrics.TickNoFrame)
		s.logger.Debug("Invalid frame", "error", err)
		return
	}
	res := s.detector.DetectFrame(buf.Pix, buf.Width, buf.Height)
	buf.Release()
	s.stats.sampled.Add(1)
	metrics.StreamTick(metrics.TickSampled)

	if !res.OK() {
		return
	}
	if !s.confirm.observe(res.Value) || !s.running.Load() {
		return
	}
	s.stats.confirmations.Add(1)
	metrics.StreamConfirmed()
	s.logger.Info("Code confirmed", "value", res.Value, "format", res.Format)
	s.emit(func() { s.deps.Sink.OnDetect(res) })
}
