package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/frame"
)

func newPlanner(t *testing.T) *Planner {
	t.Helper()
	p, err := New(DefaultThresholds())
	require.NoError(t, err)
	return p
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want []Candidate
	}{
		{
			name: "small frame full only",
			w:    100, h: 80,
			want: []Candidate{{KindFull, 100, 80}},
		},
		{
			name: "vga crop then full",
			w:    640, h: 480,
			want: []Candidate{{KindCropped, 320, 240}, {KindFull, 640, 480}},
		},
		{
			name: "large frame resized first",
			w:    4096, h: 3072,
			want: []Candidate{{KindResized, 1024, 768}, {KindCropped, 512, 384}, {KindFull, 4096, 3072}},
		},
		{
			name: "slightly over optimal skips resize",
			w:    1100, h: 1050,
			want: []Candidate{{KindCropped, 550, 525}, {KindFull, 1100, 1050}},
		},
		{
			name: "exactly min dimension",
			w:    60, h: 60,
			want: []Candidate{{KindFull, 60, 60}},
		},
	}
	p := newPlanner(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Plan(tt.w, tt.h)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_TooSmall(t *testing.T) {
	p := newPlanner(t)
	for _, dims := range [][2]int{{5, 5}, {59, 1000}, {1000, 59}, {0, 0}} {
		_, err := p.Plan(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrTooSmall, "%v", dims)
	}
}

func TestWalk_StopsAtFirstAccept(t *testing.T) {
	p := newPlanner(t)
	buf := frame.Buffer{Width: 640, Height: 480, Pix: make([]byte, 640*480)}

	var seen []Kind
	err := p.Walk(buf, func(c Candidate, b frame.Buffer) bool {
		seen = append(seen, c.Kind)
		assert.Equal(t, c.Width, b.Width)
		assert.Equal(t, c.Height, b.Height)
		assert.Len(t, b.Pix, b.Width*b.Height)
		return c.Kind == KindCropped
	})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindCropped}, seen)
}

func TestWalk_TooSmallNeverCallsBack(t *testing.T) {
	p := newPlanner(t)
	called := false
	err := p.Walk(frame.Buffer{Width: 5, Height: 5, Pix: make([]byte, 25)}, func(Candidate, frame.Buffer) bool {
		called = true
		return false
	})
	require.ErrorIs(t, err, ErrTooSmall)
	assert.False(t, called)
}

func TestCropCenter(t *testing.T) {
	pix := make([]byte, 4*4)
	for i := range pix {
		pix[i] = byte(i)
	}
	out := CropCenter(frame.Buffer{Width: 4, Height: 4, Pix: pix}, 2, 2)
	assert.Equal(t, []byte{5, 6, 9, 10}, out.Pix)
}

func TestResize(t *testing.T) {
	pix := make([]byte, 200*100)
	for i := range pix {
		pix[i] = 200
	}
	out := Resize(frame.Buffer{Width: 200, Height: 100, Pix: pix}, 100, 50)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
	assert.InDelta(t, 200, int(out.Pix[len(out.Pix)/2]), 2)
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.CropFactor = 1.5
	bad.RequiredConsecutiveDetections = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crop factor")
	assert.Contains(t, err.Error(), "consecutive")

	_, err = New(bad)
	assert.Error(t, err)
}
