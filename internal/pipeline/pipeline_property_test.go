package pipeline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/frame"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

func TestDetectFrame_Properties(t *testing.T) {
	calls := 0
	// succeeds only when the candidate's first pixel is odd
	picky := barcode.DecoderFunc{Name: "picky", Symbol: barcode.FormatCode39, Fn: func(b frame.Buffer) (string, error) {
		calls++
		if len(b.Pix) > 0 && b.Pix[0]%2 == 1 {
			return "odd", nil
		}
		return "", barcode.ErrNotFound
	}}
	p, err := NewBuilder().WithDecoders(picky).Build()
	if err != nil {
		t.Fatal(err)
	}
	minDim := p.Config().Thresholds.MinDimension

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 40
	properties := gopter.NewProperties(params)

	properties.Property("large enough frames yield text or not-detected", prop.ForAll(
		func(w, h int, fill uint8) bool {
			pix := make([]byte, w*h)
			for i := range pix {
				pix[i] = fill
			}
			res := p.DetectFrame(pix, w, h)
			return res.OK() || res.Code() == scanerr.NotDetected
		},
		gen.IntRange(minDim, 400),
		gen.IntRange(minDim, 400),
		gen.UInt8(),
	))

	properties.Property("undersized frames never reach a decoder", prop.ForAll(
		func(w, h int) bool {
			calls = 0
			res := p.DetectFrame(make([]byte, w*h), w, h)
			return res.Code() == scanerr.ImageTooSmall && calls == 0
		},
		gen.IntRange(1, minDim-1),
		gen.IntRange(1, 400),
	))

	properties.TestingRun(t)
}
