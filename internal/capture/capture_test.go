package capture_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/capture/capturetest"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, scanerr.NoPermission, capture.Classify(capture.ErrNoPermission))
	assert.Equal(t, scanerr.NoPermission, capture.Classify(fmt.Errorf("prompt: %w", capture.ErrNoPermission)))
	assert.Equal(t, scanerr.NoMedia, capture.Classify(capture.ErrNoMedia))
	assert.Equal(t, scanerr.NoMedia, capture.Classify(errors.New("device busy")))
}

func TestLatest_NewestWins(t *testing.T) {
	var l capture.Latest
	_, ok := l.Get()
	assert.False(t, ok)

	a := image.NewGray(image.Rect(0, 0, 1, 1))
	b := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.False(t, l.Put(a))
	assert.True(t, l.Put(b), "unread frame a is replaced")

	got, ok := l.Get()
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.False(t, l.Put(a), "b was read")

	published, replaced := l.Stats()
	assert.Equal(t, uint64(3), published)
	assert.Equal(t, uint64(1), replaced)
}

func TestPackRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	sub := src.SubImage(image.Rect(1, 1, 3, 3))

	pix, w, h := capture.PackRGBA(sub)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	require.Len(t, pix, 16)
	assert.Equal(t, []byte{10, 20, 30, 255}, pix[:4])

	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.SetGray(2, 0, color.Gray{Y: 77})
	pix, w, h = capture.PackRGBA(gray)
	assert.Equal(t, 3, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []byte{77, 77, 77, 255}, pix[8:12])
}

func TestVideoSurface(t *testing.T) {
	s := capture.NewVideoSurface("video-1")
	_, _, _, err := s.Snapshot()
	require.ErrorIs(t, err, capture.ErrNotBound)

	require.Error(t, s.Bind(capture.ResourceFunc(func() []capture.Track { return nil })))

	empty := &capturetest.Resource{Video: capturetest.NewTrack()}
	require.NoError(t, s.Bind(empty))
	_, _, _, err = s.Snapshot()
	require.ErrorIs(t, err, capture.ErrNoFrame)

	frame := image.NewRGBA(image.Rect(0, 0, 8, 6))
	require.NoError(t, s.Bind(&capturetest.Resource{Video: capturetest.NewTrack(frame)}))
	assert.True(t, s.Bound())
	pix, w, h, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)
	assert.Len(t, pix, 8*6*4)

	s.Unbind()
	assert.False(t, s.Bound())
}

func TestSurfaces(t *testing.T) {
	reg := capture.NewSurfaces("b", "a")
	assert.Equal(t, []string{"a", "b"}, reg.IDs())
	_, ok := reg.Lookup("a")
	assert.True(t, ok)
	_, ok = reg.Lookup("zzz")
	assert.False(t, ok)

	reg.Register(capture.NewVideoSurface("c"))
	assert.Equal(t, []string{"a", "b", "c"}, reg.IDs())

	var nilReg *capture.Surfaces
	_, ok = nilReg.Lookup("a")
	assert.False(t, ok)
}

func TestStopAll(t *testing.T) {
	r := &capturetest.Resource{Video: capturetest.NewTrack()}
	capture.StopAll(r)
	capture.StopAll(nil)
	assert.Equal(t, 1, r.Video.Stops())
}

func TestFakes(t *testing.T) {
	ctx := context.Background()
	_, err := capturetest.Denied{}.Acquire(ctx, capture.DefaultConstraints())
	assert.ErrorIs(t, err, capture.ErrNoPermission)
	_, err = capturetest.Unavailable{}.Acquire(ctx, capture.DefaultConstraints())
	assert.ErrorIs(t, err, capture.ErrNoMedia)

	st := &capturetest.Static{}
	_, err = st.Acquire(ctx, capture.Constraints{FacingMode: capture.FacingUser})
	require.NoError(t, err)
	assert.Equal(t, capture.FacingUser, st.LastConstraints().FacingMode)
	assert.Len(t, st.Resources(), 1)
}
