// Package filesource is a virtual camera that replays image files as a
// live video track.
package filesource

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/codec"
)

// DefaultFrameRate is used when Source.FrameRate is not positive.
const DefaultFrameRate = 10.0

// Source replays a single image or every image in a directory.
type Source struct {
	Fs        afero.Fs
	Path      string
	FrameRate float64
	Loop      bool

	doneOnce sync.Once
	done     chan struct{}
	initOnce sync.Once
}

// New returns a source reading path from fs.
func New(fs afero.Fs, path string, frameRate float64, loop bool) *Source {
	return &Source{Fs: fs, Path: path, FrameRate: frameRate, Loop: loop}
}

func (s *Source) init() {
	s.initOnce.Do(func() { s.done = make(chan struct{}) })
}

// Done is closed once a non-looping replay has shown its last frame.
func (s *Source) Done() <-chan struct{} {
	s.init()
	return s.done
}

func (s *Source) finish() {
	s.init()
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Source) paths() ([]string, error) {
	info, err := s.Fs.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{s.Path}, nil
	}
	return codec.ListImages(s.Fs, s.Path)
}

// Acquire decodes every frame up front and starts the replay clock.
// Missing or undecodable input yields ErrNoMedia.
func (s *Source) Acquire(ctx context.Context, c capture.Constraints) (capture.Resource, error) {
	s.init()
	paths, err := s.paths()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrNoMedia, err)
	}

	frames := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, _, loadErr := codec.LoadFile(s.Fs, p)
		if loadErr != nil {
			slog.Warn("Skipping unreadable frame", "path", p, "error", loadErr)
			continue
		}
		if c.Width > 0 && c.Height > 0 {
			img = imaging.Fit(img, c.Width, c.Height, imaging.Lanczos)
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no decodable images at %s", capture.ErrNoMedia, s.Path)
	}

	rate := s.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	t := &track{
		frames:   frames,
		interval: time.Duration(float64(time.Second) / rate),
		loop:     s.Loop,
		stop:     make(chan struct{}),
		onEnd:    s.finish,
	}
	t.slot.Put(frames[0])
	go t.run()

	slog.Debug("File source acquired", "path", s.Path, "frames", len(frames), "facing_mode", c.FacingMode)
	return &resource{video: t}, nil
}

type resource struct{ video *track }

func (r *resource) Tracks() []capture.Track { return []capture.Track{r.video} }

type track struct {
	frames   []image.Image
	interval time.Duration
	loop     bool
	slot     capture.Latest
	stop     chan struct{}
	stopOnce sync.Once
	onEnd    func()
}

func (t *track) Kind() capture.TrackKind { return capture.KindVideo }

func (t *track) Stop() { t.stopOnce.Do(func() { close(t.stop) }) }

func (t *track) Frame() (image.Image, bool) { return t.slot.Get() }

func (t *track) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	next := 1
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
		if next >= len(t.frames) {
			if !t.loop {
				t.onEnd()
				return
			}
			next = 0
		}
		t.slot.Put(t.frames[next])
		next++
	}
}
