package capture

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
)

// Surface is where a bound resource is rendered and sampled.
type Surface interface {
	ID() string
	Bind(r Resource) error
	// Snapshot returns the current frame as packed RGBA bytes.
	Snapshot() (rgba []byte, width, height int, err error)
	Unbind()
}

// VideoSurface renders the first video track of the bound resource.
type VideoSurface struct {
	id    string
	mu    sync.Mutex
	track VideoTrack
}

// NewVideoSurface returns an unbound surface.
func NewVideoSurface(id string) *VideoSurface { return &VideoSurface{id: id} }

func (s *VideoSurface) ID() string { return s.id }

// Bind attaches r's first video track.
func (s *VideoSurface) Bind(r Resource) error {
	vt, ok := FirstVideo(r)
	if !ok {
		return fmt.Errorf("%w: resource has no video track", ErrNoMedia)
	}
	s.mu.Lock()
	s.track = vt
	s.mu.Unlock()
	return nil
}

// Unbind detaches the current track without stopping it.
func (s *VideoSurface) Unbind() {
	s.mu.Lock()
	s.track = nil
	s.mu.Unlock()
}

// Bound reports whether a track is attached.
func (s *VideoSurface) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track != nil
}

func (s *VideoSurface) Snapshot() ([]byte, int, int, error) {
	s.mu.Lock()
	track := s.track
	s.mu.Unlock()
	if track == nil {
		return nil, 0, 0, ErrNotBound
	}
	img, ok := track.Frame()
	if !ok || img == nil {
		return nil, 0, 0, ErrNoFrame
	}
	pix, w, h := PackRGBA(img)
	return pix, w, h, nil
}

// PackRGBA copies img into a tightly packed RGBA byte slice.
func PackRGBA(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var src []byte
	var stride, off int
	switch m := img.(type) {
	case *image.RGBA:
		src, stride, off = m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)
	case *image.NRGBA:
		src, stride, off = m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)
	default:
		return imaging.Clone(img).Pix, w, h
	}

	out := make([]byte, w*h*4)
	for y := range h {
		copy(out[y*w*4:(y+1)*w*4], src[off+y*stride:off+y*stride+w*4])
	}
	return out, w, h
}

// Surfaces resolves render surfaces by id.
type Surfaces struct {
	mu sync.RWMutex
	m  map[string]Surface
}

// NewSurfaces registers a VideoSurface for every id.
func NewSurfaces(ids ...string) *Surfaces {
	s := &Surfaces{m: make(map[string]Surface, len(ids))}
	for _, id := range ids {
		s.m[id] = NewVideoSurface(id)
	}
	return s
}

// Register adds or replaces a surface.
func (s *Surfaces) Register(surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]Surface)
	}
	s.m[surface.ID()] = surface
}

// Lookup returns the surface registered under id.
func (s *Surfaces) Lookup(id string) (Surface, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	surface, ok := s.m[id]
	return surface, ok
}

// IDs lists registered surface ids, sorted.
func (s *Surfaces) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
