package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStrategy_LinearBeforeMatrix(t *testing.T) {
	s := DefaultStrategy()
	require.NoError(t, s.Validate())

	seenMatrix := false
	for _, id := range s {
		d, err := Lookup(id, Options{})
		require.NoError(t, err)
		if d.Format().Dimensions() == 2 {
			seenMatrix = true
			continue
		}
		assert.False(t, seenMatrix, "linear decoder %s after a matrix decoder", id)
	}
}

func TestDefaultStrategy_UPCABeforeEAN13(t *testing.T) {
	s := DefaultStrategy()
	assert.Equal(t, []string{"upca", "ean13"}, []string(s[:2]))
}

func TestStrategy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		wantErr string
	}{
		{"empty", Strategy{}, "empty"},
		{"unknown", Strategy{"ean13", "morse"}, "unknown decoder"},
		{"duplicate", Strategy{"qr", "QR"}, "twice"},
		{"ok", Strategy{"qr-goqr", "qr"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("morse", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qr-goqr")
}

func TestIDs_Sorted(t *testing.T) {
	ids := IDs()
	assert.Contains(t, ids, "qr-goqr")
	assert.Contains(t, ids, "ean13")
	assert.IsIncreasing(t, ids)
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{
		FormatQR, FormatDataMatrix, FormatAztec, FormatCode128, FormatCode39,
		FormatEAN8, FormatEAN13, FormatUPCA, FormatUPCE, FormatITF, FormatCodabar,
	} {
		got, ok := ParseFormat(f.String())
		assert.True(t, ok, f.String())
		assert.Equal(t, f, got)
	}
	got, ok := ParseFormat(" UPC-A ")
	assert.True(t, ok)
	assert.Equal(t, FormatUPCA, got)

	_, ok = ParseFormat("morse")
	assert.False(t, ok)
	assert.Equal(t, "unknown", FormatUnknown.String())
	assert.Equal(t, 0, FormatUnknown.Dimensions())
}

func TestEveryFormatHasADecoder(t *testing.T) {
	covered := map[Format]bool{}
	for _, id := range IDs() {
		covered[lookup(t, id).Format()] = true
	}
	for f := FormatQR; f <= FormatCodabar; f++ {
		assert.True(t, covered[f], "no decoder for %s", f)
	}
	_, ok := ParseFormat("pdf417")
	assert.False(t, ok)
}
