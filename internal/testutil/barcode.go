package testutil

import (
	"fmt"
	"image"
	"image/color"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQR renders text as a QR code of size×size pixels including the
// standard quiet zone.
func GenerateQR(text string, size int) (image.Image, error) {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return q.Image(size), nil
}

// GenerateCode128 renders text as a Code 128 symbol scaled to width×height
// and surrounded by a white quiet zone.
func GenerateCode128(text string, width, height int) (image.Image, error) {
	bc, err := code128.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("code128 encode: %w", err)
	}
	return scaleLinear(bc, width, height)
}

// GenerateEAN13 renders a 12 or 13 digit EAN-13 code.
func GenerateEAN13(digits string, width, height int) (image.Image, error) {
	bc, err := ean.Encode(digits)
	if err != nil {
		return nil, fmt.Errorf("ean encode: %w", err)
	}
	return scaleLinear(bc, width, height)
}

// scaleLinear scales a 1-D symbol to an integral module width and pads it
// with a quiet zone of ten modules on each side.
func scaleLinear(bc barcode.Barcode, width, height int) (image.Image, error) {
	modules := bc.Bounds().Dx()
	quiet := 20 * (width / (modules + 20))
	if quiet < 20 {
		quiet = 20
	}
	scaled, err := barcode.Scale(bc, width-quiet, height)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	return OnCanvas(scaled, width, height+height/5), nil
}

// OnCanvas centers img on a white width×height canvas.
func OnCanvas(img image.Image, width, height int) *image.NRGBA {
	bg := imaging.New(width, height, color.White)
	return imaging.PasteCenter(bg, img)
}

// Solid returns a uniformly colored image.
func Solid(width, height int, c color.Color) *image.NRGBA {
	return imaging.New(width, height, c)
}
