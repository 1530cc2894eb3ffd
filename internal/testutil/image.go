package testutil

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// EncodePNG encodes img as PNG.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(t testing.TB, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

// MustQR is GenerateQR for tests.
func MustQR(t testing.TB, text string, size int) image.Image {
	t.Helper()
	img, err := GenerateQR(text, size)
	require.NoError(t, err)
	return img
}

// MustCode128 is GenerateCode128 for tests.
func MustCode128(t testing.TB, text string, width, height int) image.Image {
	t.Helper()
	img, err := GenerateCode128(text, width, height)
	require.NoError(t, err)
	return img
}

// MustEAN13 is GenerateEAN13 for tests.
func MustEAN13(t testing.TB, digits string, width, height int) image.Image {
	t.Helper()
	img, err := GenerateEAN13(digits, width, height)
	require.NoError(t, err)
	return img
}
