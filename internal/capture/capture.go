// Package capture defines the media collaborators a stream session consumes:
// MediaCapture hands out live capture resources, and a Surface binds one
// resource and snapshots its current frame.
package capture

import (
	"context"
	"errors"
	"image"

	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

var (
	// ErrNoPermission reports that the user or host denied camera access.
	ErrNoPermission = errors.New("capture: permission denied")
	// ErrNoMedia reports that no suitable capture device is available.
	ErrNoMedia = errors.New("capture: no media available")
	// ErrNoFrame is returned by Snapshot before the first frame arrives.
	ErrNoFrame = errors.New("capture: no frame available")
	// ErrNotBound is returned by Snapshot on an unbound surface.
	ErrNotBound = errors.New("capture: surface not bound")
)

// FacingMode selects front or rear cameras.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// Constraints describe the requested capture. Zero sizes mean "any".
type Constraints struct {
	FacingMode FacingMode
	Width      int
	Height     int
}

// DefaultConstraints asks for the rear camera at any resolution.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: FacingEnvironment}
}

// TrackKind identifies the media carried by a track.
type TrackKind string

const (
	KindVideo TrackKind = "video"
	KindAudio TrackKind = "audio"
)

// Track is one constituent stream of a resource.
type Track interface {
	Kind() TrackKind
	// Stop ends the track. It must be idempotent.
	Stop()
}

// VideoTrack is a track that exposes its most recent frame.
type VideoTrack interface {
	Track
	Frame() (image.Image, bool)
}

// Resource is a live capture handle. Releasing it means stopping every
// track.
type Resource interface {
	Tracks() []Track
}

// MediaCapture acquires capture resources. Acquire may block while the host
// asks for permission; it returns ErrNoPermission or ErrNoMedia (possibly
// wrapped) when no resource can be handed out.
type MediaCapture interface {
	Acquire(ctx context.Context, c Constraints) (Resource, error)
}

// StopAll stops every track of r.
func StopAll(r Resource) {
	if r == nil {
		return
	}
	for _, t := range r.Tracks() {
		t.Stop()
	}
}

// FirstVideo returns the first video track of r.
func FirstVideo(r Resource) (VideoTrack, bool) {
	if r == nil {
		return nil, false
	}
	for _, t := range r.Tracks() {
		if v, ok := t.(VideoTrack); ok && t.Kind() == KindVideo {
			return v, true
		}
	}
	return nil, false
}

// Classify maps an acquisition failure to its error code. Anything other
// than a permission denial counts as missing media.
func Classify(err error) scanerr.Code {
	if errors.Is(err, ErrNoPermission) {
		return scanerr.NoPermission
	}
	return scanerr.NoMedia
}

// ResourceFunc adapts a track list into a Resource.
type ResourceFunc func() []Track

func (f ResourceFunc) Tracks() []Track { return f() }
