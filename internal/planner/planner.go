// Package planner decides which resized or cropped variants of a frame are
// handed to the decoders, and in which order.
//
// Policy, applied to the full frame:
//
//   - a frame with either side below MinDimension is rejected before any
//     decoder runs;
//   - when both sides exceed OptimalDimension and the required scale is at
//     most ResizeFactor, a Lanczos-downscaled candidate with the longer side
//     equal to OptimalDimension comes first;
//   - a centered crop of the working frame (the downscaled one when present)
//     comes next, provided the crop still satisfies MinDimension;
//   - the untouched full frame is always the last candidate.
package planner

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/codescan/internal/frame"
)

// ErrTooSmall is returned for frames below the minimum dimension.
var ErrTooSmall = errors.New("planner: frame too small")

// Kind identifies how a candidate was derived from the frame.
type Kind string

const (
	KindResized Kind = "resized"
	KindCropped Kind = "cropped"
	KindFull    Kind = "full"
)

// Candidate describes one decoder input before it is materialized.
type Candidate struct {
	Kind   Kind
	Width  int
	Height int
}

// Planner plans and materializes candidates under fixed thresholds.
type Planner struct {
	th Thresholds
}

// New returns a planner; thresholds must be valid.
func New(th Thresholds) (*Planner, error) {
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	return &Planner{th: th}, nil
}

// Thresholds returns the planner's thresholds.
func (p *Planner) Thresholds() Thresholds { return p.th }

// Plan lists the candidates for a width×height frame, cheapest first.
func (p *Planner) Plan(width, height int) ([]Candidate, error) {
	if width < p.th.MinDimension || height < p.th.MinDimension {
		return nil, fmt.Errorf("%w: %dx%d < %d", ErrTooSmall, width, height, p.th.MinDimension)
	}

	out := make([]Candidate, 0, 3)
	baseW, baseH := width, height

	if rw, rh, ok := p.resizeTarget(width, height); ok {
		out = append(out, Candidate{Kind: KindResized, Width: rw, Height: rh})
		baseW, baseH = rw, rh
	}

	cw := int(math.Round(float64(baseW) * p.th.CropFactor))
	ch := int(math.Round(float64(baseH) * p.th.CropFactor))
	if cw >= p.th.MinDimension && ch >= p.th.MinDimension {
		out = append(out, Candidate{Kind: KindCropped, Width: cw, Height: ch})
	}

	return append(out, Candidate{Kind: KindFull, Width: width, Height: height}), nil
}

func (p *Planner) resizeTarget(width, height int) (int, int, bool) {
	opt := p.th.OptimalDimension
	if width <= opt || height <= opt {
		return 0, 0, false
	}
	scale := float64(opt) / float64(max(width, height))
	if scale > p.th.ResizeFactor {
		return 0, 0, false
	}
	rw := max(1, int(math.Round(float64(width)*scale)))
	rh := max(1, int(math.Round(float64(height)*scale)))
	if rw < p.th.MinDimension || rh < p.th.MinDimension {
		return 0, 0, false
	}
	return rw, rh, true
}

// Walk materializes candidates in order and passes each to fn until fn
// returns true. The downscaled frame is computed at most once.
func (p *Planner) Walk(buf frame.Buffer, fn func(Candidate, frame.Buffer) bool) error {
	cands, err := p.Plan(buf.Width, buf.Height)
	if err != nil {
		return err
	}

	base := buf
	for _, c := range cands {
		var prepared frame.Buffer
		switch c.Kind {
		case KindResized:
			prepared = Resize(buf, c.Width, c.Height)
			base = prepared
		case KindCropped:
			prepared = CropCenter(base, c.Width, c.Height)
		default:
			prepared = buf
		}
		if fn(c, prepared) {
			return nil
		}
	}
	return nil
}

// Resize downsamples buf to width×height with Lanczos filtering.
func Resize(buf frame.Buffer, width, height int) frame.Buffer {
	return frame.FromImage(imaging.Resize(buf.Gray(), width, height, imaging.Lanczos))
}

// CropCenter returns a copy of the centered width×height region of buf.
func CropCenter(buf frame.Buffer, width, height int) frame.Buffer {
	width = min(width, buf.Width)
	height = min(height, buf.Height)
	x0 := (buf.Width - width) / 2
	y0 := (buf.Height - height) / 2
	sub := buf.Gray().SubImage(image.Rect(x0, y0, x0+width, y0+height))
	return frame.FromImage(sub)
}
