package barcode

import (
	"errors"
	"strings"

	"github.com/MeKo-Tech/codescan/internal/frame"
)

// ErrNotFound is returned by a decoder that could not find its symbology in
// the frame.
var ErrNotFound = errors.New("barcode: not found")

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

// Dimensions returns 1 for linear symbologies and 2 for matrix codes.
func (f Format) Dimensions() int {
	switch f {
	case FormatQR, FormatDataMatrix, FormatAztec:
		return 2
	case FormatUnknown:
		return 0
	default:
		return 1
	}
}

// String returns the canonical lowercase name.
func (f Format) String() string {
	switch f {
	case FormatQR:
		return "qr"
	case FormatDataMatrix:
		return "datamatrix"
	case FormatAztec:
		return "aztec"
	case FormatCode128:
		return "code128"
	case FormatCode39:
		return "code39"
	case FormatEAN8:
		return "ean8"
	case FormatEAN13:
		return "ean13"
	case FormatUPCA:
		return "upca"
	case FormatUPCE:
		return "upce"
	case FormatITF:
		return "itf"
	case FormatCodabar:
		return "codabar"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the canonical names plus common spellings.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode", "qr-code":
		return FormatQR, true
	case "datamatrix", "data-matrix":
		return FormatDataMatrix, true
	case "aztec":
		return FormatAztec, true
	case "code128", "code-128":
		return FormatCode128, true
	case "code39", "code-39":
		return FormatCode39, true
	case "ean8", "ean-8":
		return FormatEAN8, true
	case "ean13", "ean-13":
		return FormatEAN13, true
	case "upca", "upc-a":
		return FormatUPCA, true
	case "upce", "upc-e":
		return FormatUPCE, true
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, true
	case "codabar":
		return FormatCodabar, true
	default:
		return FormatUnknown, false
	}
}

// Options controls decoder behavior.
type Options struct {
	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// Decoder is one decoder capability: a single symbology implementation.
type Decoder interface {
	// ID is the strategy identifier, e.g. "ean13" or "qr-goqr".
	ID() string
	Format() Format
	// Decode returns the symbol text or an error wrapping ErrNotFound.
	Decode(buf frame.Buffer) (string, error)
}

// DecoderFunc adapts a function into a Decoder.
type DecoderFunc struct {
	Name   string
	Symbol Format
	Fn     func(buf frame.Buffer) (string, error)
}

func (d DecoderFunc) ID() string     { return d.Name }
func (d DecoderFunc) Format() Format { return d.Symbol }

func (d DecoderFunc) Decode(buf frame.Buffer) (string, error) { return d.Fn(buf) }
