//go:build gocv

// Package gocvcam captures frames from a local camera through OpenCV.
package gocvcam

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/MeKo-Tech/codescan/internal/capture"
)

const readRetryDelay = 10 * time.Millisecond

// Camera opens a local video device.
type Camera struct {
	DeviceID int
}

// Acquire opens the device. Failure to open is reported as ErrNoMedia;
// OpenCV does not distinguish permission denials.
func (c Camera) Acquire(ctx context.Context, cons capture.Constraints) (capture.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.OpenVideoCapture(c.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", capture.ErrNoMedia, c.DeviceID, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", capture.ErrNoMedia, c.DeviceID)
	}
	if cons.Width > 0 && cons.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cons.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cons.Height))
	}

	t := &track{vc: vc, stop: make(chan struct{}), done: make(chan struct{})}
	go t.run()
	slog.Info("Camera opened", "device", c.DeviceID, "facing_mode", cons.FacingMode)
	return &resource{video: t}, nil
}

type resource struct{ video *track }

func (r *resource) Tracks() []capture.Track { return []capture.Track{r.video} }

type track struct {
	vc       *gocv.VideoCapture
	slot     capture.Latest
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (t *track) Kind() capture.TrackKind    { return capture.KindVideo }
func (t *track) Frame() (image.Image, bool) { return t.slot.Get() }

// Stop ends the read loop and closes the device once the loop has exited.
func (t *track) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		<-t.done
		if err := t.vc.Close(); err != nil {
			slog.Warn("Failed to close camera", "error", err)
		}
	})
}

func (t *track) run() {
	defer close(t.done)
	mat := gocv.NewMat()
	defer func() { _ = mat.Close() }()

	for {
		select {
		case <-t.stop:
			return
		default:
		}
		if ok := t.vc.Read(&mat); !ok || mat.Empty() {
			time.Sleep(readRetryDelay)
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			slog.Debug("Dropping camera frame", "error", err)
			continue
		}
		t.slot.Put(img)
	}
}
