package session

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/capture/capturetest"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
	"github.com/MeKo-Tech/codescan/internal/scheduler"
)

const surfaceID = "video-1"

// scripted returns one scripted text per call; "" means nothing was found.
type scripted struct {
	mu    sync.Mutex
	texts []string
	calls int
}

func (d *scripted) DetectFrame(_ []byte, _, _ int) scanerr.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if i >= len(d.texts) || d.texts[i] == "" {
		return scanerr.FailureCode(scanerr.NotDetected)
	}
	return scanerr.Success(d.texts[i], "qr")
}

func (d *scripted) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *scripted) Append(texts ...string) {
	d.mu.Lock()
	d.texts = append(d.texts, texts...)
	d.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t       *testing.T
	s       *Session
	sched   *scheduler.Manual
	rec     *event.Recorder
	det     *scripted
	clock   *fakeClock
	surface *capture.VideoSurface
}

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

func newHarness(t *testing.T, mc capture.MediaCapture, extra event.Sink, texts ...string) *harness {
	t.Helper()
	return newHarnessWith(t, mc, extra, nil, texts...)
}

// newHarnessWith lets tune adjust the session deps before New.
func newHarnessWith(t *testing.T, mc capture.MediaCapture, extra event.Sink, tune func(*Deps), texts ...string) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		sched:   scheduler.NewManual(),
		rec:     event.NewRecorder(),
		det:     &scripted{texts: texts},
		clock:   &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		surface: capture.NewVideoSurface(surfaceID),
	}
	surfaces := &capture.Surfaces{}
	surfaces.Register(h.surface)

	var sink event.Sink = h.rec
	if extra != nil {
		sink = event.Multi{h.rec, extra}
	}
	deps := Deps{
		Capture:   mc,
		Surfaces:  surfaces,
		Scheduler: h.sched,
		Detector:  h.det,
		Sink:      sink,
		Clock:     h.clock.Now,
	}
	if tune != nil {
		tune(&deps)
	}
	s, err := New(DefaultConfig(), deps)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.s = s
	return h
}

// startStreaming starts the session and waits for the first tick request.
func (h *harness) startStreaming() {
	h.t.Helper()
	require.NoError(h.t, h.s.Start(surfaceID, nil))
	require.Eventually(h.t, func() bool {
		return h.s.State() == StateStreaming && h.sched.Pending() == 1
	}, 2*time.Second, time.Millisecond)
}

// tick advances the clock past the sample interval and runs one tick.
func (h *harness) tick() {
	h.clock.Advance(100 * time.Millisecond)
	h.sched.Fire()
	h.s.barrier()
}

func (h *harness) ticks(n int) {
	for range n {
		h.tick()
	}
}

func (h *harness) waitStop() []event.Event {
	h.t.Helper()
	evs, ok := h.rec.WaitStop(2 * time.Second)
	require.True(h.t, ok, "no stop event; got %v", evs)
	return evs
}

func (h *harness) assertEvents(want ...string) {
	h.t.Helper()
	got := make([]string, 0)
	for _, e := range h.rec.Events() {
		got = append(got, e.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		h.t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func staticCapture() *capturetest.Static {
	return &capturetest.Static{Frames: []image.Image{testFrame()}}
}
