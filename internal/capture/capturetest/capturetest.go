// Package capturetest provides scripted MediaCapture implementations for
// tests.
package capturetest

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/codescan/internal/capture"
)

// Track is a video track replaying a fixed frame list. Each Frame call
// advances to the next frame; the last frame repeats.
type Track struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	stops  atomic.Int32
}

// NewTrack returns a track over frames.
func NewTrack(frames ...image.Image) *Track { return &Track{frames: frames} }

func (t *Track) Kind() capture.TrackKind { return capture.KindVideo }
func (t *Track) Stop()                   { t.stops.Add(1) }

// Stops returns how many times Stop was called.
func (t *Track) Stops() int { return int(t.stops.Load()) }

func (t *Track) Frame() (image.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return nil, false
	}
	img := t.frames[min(t.next, len(t.frames)-1)]
	t.next++
	return img, true
}

// Resource owns a single video track.
type Resource struct {
	Video *Track
}

func (r *Resource) Tracks() []capture.Track { return []capture.Track{r.Video} }

// Released reports whether the video track was stopped at least once.
func (r *Resource) Released() bool { return r.Video.Stops() > 0 }

// Denied always fails with ErrNoPermission.
type Denied struct{}

func (Denied) Acquire(context.Context, capture.Constraints) (capture.Resource, error) {
	return nil, capture.ErrNoPermission
}

// Unavailable always fails with ErrNoMedia.
type Unavailable struct{}

func (Unavailable) Acquire(context.Context, capture.Constraints) (capture.Resource, error) {
	return nil, capture.ErrNoMedia
}

// Static grants immediately and replays frames. Every Acquire gets a fresh
// resource; all of them are kept for inspection.
type Static struct {
	Frames []image.Image

	mu        sync.Mutex
	resources []*Resource
	last      capture.Constraints
}

func (s *Static) Acquire(_ context.Context, c capture.Constraints) (capture.Resource, error) {
	r := &Resource{Video: NewTrack(s.Frames...)}
	s.mu.Lock()
	s.resources = append(s.resources, r)
	s.last = c
	s.mu.Unlock()
	return r, nil
}

// Resources returns every resource handed out so far.
func (s *Static) Resources() []*Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Resource(nil), s.resources...)
}

// LastConstraints returns the constraints of the latest Acquire.
func (s *Static) LastConstraints() capture.Constraints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Gated blocks every Acquire until Grant or Deny is called, the way a host
// permission prompt would. It ignores context cancellation unless
// HonorContext is set.
type Gated struct {
	HonorContext bool
	Frames       []image.Image

	once     sync.Once
	gate     chan struct{}
	mu       sync.Mutex
	err      error
	started  chan struct{}
	resource *Resource
}

func (g *Gated) init() {
	g.once.Do(func() {
		g.gate = make(chan struct{})
		g.started = make(chan struct{}, 16)
	})
}

// Started is signalled each time Acquire begins waiting.
func (g *Gated) Started() <-chan struct{} {
	g.init()
	return g.started
}

// Grant releases pending and future acquisitions with a resource.
func (g *Gated) Grant() {
	g.init()
	g.mu.Lock()
	g.resource = &Resource{Video: NewTrack(g.Frames...)}
	g.mu.Unlock()
	close(g.gate)
}

// Deny releases pending and future acquisitions with err.
func (g *Gated) Deny(err error) {
	g.init()
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
	close(g.gate)
}

// Resource returns the granted resource, if any.
func (g *Gated) Resource() *Resource {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resource
}

func (g *Gated) Acquire(ctx context.Context, _ capture.Constraints) (capture.Resource, error) {
	g.init()
	g.started <- struct{}{}

	if g.HonorContext {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		<-g.gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.resource, nil
}
