// Package frame defines the normalized grayscale frame shared by the
// planner, the decoders and the stream loop.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/codescan/internal/mempool"
)

// ErrSizeMismatch is returned when a pixel slice does not hold exactly
// width*height bytes.
var ErrSizeMismatch = errors.New("frame: pixel length does not match dimensions")

// Buffer is a row-major 8-bit grayscale frame. len(Pix) == Width*Height.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// New validates dimensions and wraps pix without copying.
func New(pix []byte, width, height int) (Buffer, error) {
	if width < 0 || height < 0 {
		return Buffer{}, fmt.Errorf("frame: negative dimensions %dx%d", width, height)
	}
	if len(pix) != width*height {
		return Buffer{}, fmt.Errorf("%w: got %d bytes for %dx%d", ErrSizeMismatch, len(pix), width, height)
	}
	return Buffer{Width: width, Height: height, Pix: pix}, nil
}

// Empty reports whether the buffer has no pixels.
func (b Buffer) Empty() bool { return b.Width == 0 || b.Height == 0 }

// Gray exposes the buffer as an *image.Gray sharing the same pixels.
func (b Buffer) Gray() *image.Gray {
	return &image.Gray{Pix: b.Pix, Stride: b.Width, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Luma computes 0.299R + 0.587G + 0.114B, truncated to a byte.
func Luma(r, g, b uint8) uint8 {
	y := 0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)
	return uint8(y)
}

// FromRGBA converts packed RGBA bytes (4 per pixel, alpha ignored) into a
// grayscale buffer. The destination is taken from the shared byte pool; call
// Release when the frame is no longer needed.
func FromRGBA(rgba []byte, width, height int) (Buffer, error) {
	if width <= 0 || height <= 0 {
		return Buffer{}, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	if len(rgba) < width*height*4 {
		return Buffer{}, fmt.Errorf("%w: got %d rgba bytes for %dx%d", ErrSizeMismatch, len(rgba), width, height)
	}
	gray := mempool.GetBytes(width * height)
	for i := range gray {
		px := rgba[i*4 : i*4+4 : i*4+4]
		gray[i] = Luma(px[0], px[1], px[2])
	}
	return Buffer{Width: width, Height: height, Pix: gray}, nil
}

// Release hands pooled pixels back to the pool. The buffer must not be used
// afterwards.
func (b *Buffer) Release() {
	mempool.PutBytes(b.Pix)
	b.Pix = nil
}

// FromImage converts any image into a tightly packed grayscale buffer using
// the same luma weights as FromRGBA.
func FromImage(img image.Image) Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, w*h)

	switch m := img.(type) {
	case *image.Gray:
		for y := range h {
			off := m.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(out[y*w:(y+1)*w], m.Pix[off:off+w])
		}
	case *image.NRGBA:
		for y := range h {
			off := m.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := m.Pix[off : off+w*4]
			for x := range w {
				out[y*w+x] = Luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	case *image.RGBA:
		for y := range h {
			off := m.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := m.Pix[off : off+w*4]
			for x := range w {
				out[y*w+x] = Luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	default:
		for y := range h {
			for x := range w {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				out[y*w+x] = Luma(c.R, c.G, c.B)
			}
		}
	}

	return Buffer{Width: w, Height: h, Pix: out}
}
