package testutil

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, statErr)
}

func TestGenerateQR_Size(t *testing.T) {
	img := MustQR(t, "hello", 256)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
}

func TestGenerateCode128_HasQuietZone(t *testing.T) {
	img := MustCode128(t, "CODE-128", 400, 100)
	b := img.Bounds()
	assert.Equal(t, 400, b.Dx())
	assert.Equal(t, 120, b.Dy())

	r, g, bl, _ := img.At(b.Min.X, b.Min.Y+b.Dy()/2).RGBA()
	assert.Equal(t, uint32(0xffff), r&g&bl, "left edge must be quiet zone")
}

func TestGenerateEAN13_RejectsBadDigits(t *testing.T) {
	_, err := GenerateEAN13("abc", 300, 100)
	assert.Error(t, err)
}

func TestOnCanvas_CentersImage(t *testing.T) {
	inner := Solid(10, 10, color.Black)
	out := OnCanvas(inner, 30, 30)
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(15, 15))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(2, 2))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := WriteFile(t, dir, "nested/a.bin", []byte{1, 2, 3})
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}
