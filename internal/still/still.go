// Package still runs one-shot scans of a single encoded image.
//
// Every scan that passes input validation emits start, exactly one detect
// and stop, in that order, whatever the outcome. Validation failures (no
// file, non-image MIME type) emit detect and stop only.
package still

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/MeKo-Tech/codescan/internal/codec"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

// Detector scans encoded image bytes. *pipeline.Pipeline satisfies it.
type Detector interface {
	DetectImage(data []byte) scanerr.Result
}

// Flow binds a detector to an event sink.
type Flow struct {
	det    Detector
	sink   event.Sink
	logger *slog.Logger
}

// New returns a flow reporting to sink. A nil sink discards events.
func New(det Detector, sink event.Sink) *Flow {
	if sink == nil {
		sink = event.Discard
	}
	return &Flow{det: det, sink: sink, logger: slog.Default()}
}

// WithSink returns a copy of the flow reporting to sink.
func (f *Flow) WithSink(sink event.Sink) *Flow {
	c := *f
	c.sink = sink
	return &c
}

// Scan validates mimeType and scans data.
func (f *Flow) Scan(data []byte, mimeType string) scanerr.Result {
	if !codec.IsImageMIME(mimeType) {
		return f.reject(scanerr.Wrap(scanerr.InvalidMime, fmt.Errorf("not an image type: %q", mimeType)))
	}

	f.sink.OnStart()
	res := f.detect(data)
	f.finish(res)
	return res
}

// ScanFile reads path from fs and scans it. The MIME type comes from the
// file extension, falling back to the content.
func (f *Flow) ScanFile(fs afero.Fs, path string) scanerr.Result {
	if path == "" {
		return f.reject(scanerr.New(scanerr.NoFileSelected))
	}

	data, meta, err := codec.ReadFile(fs, path)
	if err != nil {
		mimeType := codec.MIMEType(path, nil)
		if mimeType != "" && !codec.IsImageMIME(mimeType) {
			return f.reject(scanerr.Wrap(scanerr.InvalidMime, fmt.Errorf("not an image type: %q", mimeType)))
		}
		f.sink.OnStart()
		res := scanerr.Failure(scanerr.Wrap(scanerr.DecodeFailed, err))
		f.finish(res)
		return res
	}

	f.logger.Debug("Scanning file", "path", path, "mime", meta.MIME, "bytes", meta.SizeBytes)
	return f.Scan(data, meta.MIME)
}

func (f *Flow) reject(err *scanerr.Error) scanerr.Result {
	res := scanerr.Failure(err)
	f.logger.Debug("Scan input rejected", "code", string(err.Code))
	f.sink.OnDetect(res)
	f.sink.OnStop()
	return res
}

func (f *Flow) finish(res scanerr.Result) {
	f.sink.OnDetect(res)
	f.sink.OnStop()
}

func (f *Flow) detect(data []byte) (res scanerr.Result) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Still image scan panicked", "panic", r)
			res = scanerr.Failure(scanerr.Wrap(scanerr.Internal, fmt.Errorf("panic: %v", r)))
		}
	}()
	return f.det.DetectImage(data)
}
