package codec

import (
	"image/color"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/testutil"
)

func TestMIMEType(t *testing.T) {
	png := testutil.EncodePNG(t, testutil.Solid(4, 4, color.White))
	tests := []struct {
		name string
		file string
		head []byte
		want string
	}{
		{"jpeg ext", "photo.JPG", nil, "image/jpeg"},
		{"bmp ext", "scan.bmp", nil, "image/bmp"},
		{"tiff ext", "doc.tiff", nil, "image/tiff"},
		{"text ext", "notes.txt", nil, "text/plain"},
		{"sniffed png", "upload", png, "image/png"},
		{"sniffed text", "upload", []byte("hello world"), "text/plain"},
		{"nothing", "upload", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MIMEType(tt.file, tt.head))
		})
	}
}

func TestIsImageMIME(t *testing.T) {
	assert.True(t, IsImageMIME("image/png"))
	assert.True(t, IsImageMIME("IMAGE/webp"))
	assert.False(t, IsImageMIME("text/plain"))
	assert.False(t, IsImageMIME(""))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a/b/c.PNG"))
	assert.True(t, IsSupported("x.webp"))
	assert.False(t, IsSupported("x.pdf"))
	assert.Contains(t, SupportedExtensions(), ".jpeg")
}

func TestDecodeBytes(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.Solid(30, 20, color.Black))
	img, meta, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 20, meta.Height)
	assert.Equal(t, int64(len(data)), meta.SizeBytes)
}

func TestDecodeBytes_Errors(t *testing.T) {
	_, _, err := DecodeBytes(nil)
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "decode", pe.Operation)

	_, _, err = DecodeBytes([]byte("not an image"))
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoadFile_MemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := testutil.EncodeJPEG(t, testutil.Solid(64, 48, color.Gray{Y: 90}), 90)
	require.NoError(t, afero.WriteFile(fs, "/in/frame.jpg", data, 0o600))

	img, meta, err := LoadFile(fs, "/in/frame.jpg")
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, "image/jpeg", meta.MIME)
	assert.Equal(t, "jpeg", meta.Format)
	assert.Equal(t, "/in/frame.jpg", meta.Path)

	_, _, err = LoadFile(fs, "/in/missing.png")
	assert.Error(t, err)
	_, _, err = LoadFile(fs, "")
	assert.Error(t, err)
}

func TestListImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt", "sub/c.png"} {
		require.NoError(t, afero.WriteFile(fs, "/frames/"+name, []byte{1}, 0o600))
	}
	got, err := ListImages(fs, "/frames")
	require.NoError(t, err)
	assert.Equal(t, []string{"/frames/a.jpg", "/frames/b.png"}, got)

	_, err = ListImages(fs, "/nope")
	assert.Error(t, err)
}
