// Package codec loads encoded image bytes and classifies their media type.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ProcessingError records which step of loading an image failed.
type ProcessingError struct {
	Operation string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Operation, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// ErrUnsupported is returned when no registered decoder recognizes the data.
var ErrUnsupported = errors.New("codec: unsupported image format")

// extensionTypes covers extensions that are missing from Go's builtin MIME
// table on minimal systems.
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// SupportedExtensions lists extensions the registered decoders can read.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether the path has a decodable image extension.
func IsSupported(path string) bool {
	_, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MIMEType classifies a file by extension, falling back to content sniffing
// of head when the extension is unknown. The result has no parameters.
func MIMEType(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return stripParams(t)
		}
	}
	if len(head) == 0 {
		return ""
	}
	return stripParams(http.DetectContentType(head))
}

// IsImageMIME reports whether t is an image media type.
func IsImageMIME(t string) bool {
	return strings.HasPrefix(strings.ToLower(t), "image/")
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Metadata captures lightweight file and pixel information.
type Metadata struct {
	Path      string
	Format    string
	MIME      string
	SizeBytes int64
	Width     int
	Height    int
}

// Decode decodes any registered image format from r.
func Decode(r io.Reader) (image.Image, Metadata, error) {
	img, format, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return nil, Metadata{}, &ProcessingError{Operation: "decode", Err: ErrUnsupported}
	}
	if err != nil {
		return nil, Metadata{}, &ProcessingError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	return img, Metadata{Format: format, MIME: "image/" + format, Width: b.Dx(), Height: b.Dy()}, nil
}

// DecodeBytes decodes an in-memory encoded image.
func DecodeBytes(data []byte) (image.Image, Metadata, error) {
	if len(data) == 0 {
		return nil, Metadata{}, &ProcessingError{Operation: "decode", Err: errors.New("empty input")}
	}
	img, meta, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, err
	}
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

// ReadFile reads a file from fs and classifies it without decoding.
func ReadFile(fs afero.Fs, path string) ([]byte, Metadata, error) {
	if path == "" {
		return nil, Metadata{}, &ProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, Metadata{}, &ProcessingError{Operation: "load", Err: err}
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return data, Metadata{Path: path, MIME: MIMEType(path, head), SizeBytes: int64(len(data))}, nil
}

// LoadFile reads and decodes an image file from fs.
func LoadFile(fs afero.Fs, path string) (image.Image, Metadata, error) {
	data, meta, err := ReadFile(fs, path)
	if err != nil {
		return nil, Metadata{}, err
	}
	img, decoded, err := DecodeBytes(data)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta.Format = decoded.Format
	meta.Width = decoded.Width
	meta.Height = decoded.Height
	return img, meta, nil
}

// ListImages returns the supported image files directly inside dir, sorted
// by name.
func ListImages(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, &ProcessingError{Operation: "list", Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
