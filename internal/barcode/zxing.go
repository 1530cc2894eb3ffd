package barcode

import (
	"fmt"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/MeKo-Tech/codescan/internal/frame"
)

// zxingDecoder wraps one gozxing reader. A fresh reader is built per call so
// the decoder holds no state between frames.
type zxingDecoder struct {
	id        string
	format    Format
	newReader func() gozxing.Reader
	hints     map[gozxing.DecodeHintType]interface{}
}

func newZXingDecoder(id string, f Format, newReader func() gozxing.Reader, opts Options) Decoder {
	d := &zxingDecoder{id: id, format: f, newReader: newReader}
	if opts.TryHarder {
		d.hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}
	return d
}

func (d *zxingDecoder) ID() string     { return d.id }
func (d *zxingDecoder) Format() Format { return d.format }

func (d *zxingDecoder) Decode(buf frame.Buffer) (string, error) {
	if buf.Empty() {
		return "", ErrNotFound
	}
	source := gozxing.NewLuminanceSourceFromImage(buf.Gray())
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, d.id, err)
	}

	var res *gozxing.Result
	if d.hints != nil {
		res, err = d.newReader().Decode(bitmap, d.hints)
	} else {
		res, err = d.newReader().DecodeWithoutHints(bitmap)
	}
	if err != nil || res == nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, d.id, err)
	}
	return res.GetText(), nil
}

func zxingFactory(id string, f Format, newReader func() gozxing.Reader) Factory {
	return func(opts Options) Decoder { return newZXingDecoder(id, f, newReader, opts) }
}

func zxingFactories() map[string]Factory {
	return map[string]Factory{
		"ean13":      zxingFactory("ean13", FormatEAN13, func() gozxing.Reader { return oned.NewEAN13Reader() }),
		"upca":       zxingFactory("upca", FormatUPCA, func() gozxing.Reader { return oned.NewUPCAReader() }),
		"ean8":       zxingFactory("ean8", FormatEAN8, func() gozxing.Reader { return oned.NewEAN8Reader() }),
		"upce":       zxingFactory("upce", FormatUPCE, func() gozxing.Reader { return oned.NewUPCEReader() }),
		"code128":    zxingFactory("code128", FormatCode128, func() gozxing.Reader { return oned.NewCode128Reader() }),
		"code39":     zxingFactory("code39", FormatCode39, func() gozxing.Reader { return oned.NewCode39Reader() }),
		"itf":        zxingFactory("itf", FormatITF, func() gozxing.Reader { return oned.NewITFReader() }),
		"codabar":    zxingFactory("codabar", FormatCodabar, func() gozxing.Reader { return oned.NewCodaBarReader() }),
		"qr":         zxingFactory("qr", FormatQR, func() gozxing.Reader { return qrcode.NewQRCodeReader() }),
		"datamatrix": zxingFactory("datamatrix", FormatDataMatrix, func() gozxing.Reader { return datamatrix.NewDataMatrixReader() }),
		"aztec":      zxingFactory("aztec", FormatAztec, func() gozxing.Reader { return aztec.NewAztecReader() }),
	}
}
