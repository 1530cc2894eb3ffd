package barcode

import (
	"fmt"

	"github.com/liyue201/goqr"
	"golang.org/x/text/encoding/japanese"

	"github.com/MeKo-Tech/codescan/internal/frame"
)

// goqr reports the highest data type present; 8 means the payload carries
// Kanji segments encoded as Shift-JIS.
const goqrDataTypeKanji = 8

// goqrDecoder is a pure-Go QR decoder independent of gozxing. It is useful
// when a strategy wants a second QR opinion or a decoder that tolerates
// mild perspective distortion differently.
type goqrDecoder struct{}

func (goqrDecoder) ID() string     { return "qr-goqr" }
func (goqrDecoder) Format() Format { return FormatQR }

func (goqrDecoder) Decode(buf frame.Buffer) (string, error) {
	if buf.Empty() {
		return "", ErrNotFound
	}
	codes, err := goqr.Recognize(buf.Gray())
	if err != nil || len(codes) == 0 {
		return "", fmt.Errorf("%w: qr-goqr: %v", ErrNotFound, err)
	}

	payload := codes[0].Payload
	if codes[0].DataType == goqrDataTypeKanji {
		decoded, decErr := japanese.ShiftJIS.NewDecoder().Bytes(payload)
		if decErr == nil {
			payload = decoded
		}
	}
	return string(payload), nil
}
