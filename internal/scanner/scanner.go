// Package scanner is the host-facing entry point. A host creates one Scanner
// per embedding, wires in its capture devices and render surfaces, and
// drives one-shot image scans and stream scans through it.
package scanner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/planner"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
	"github.com/MeKo-Tech/codescan/internal/scheduler"
	"github.com/MeKo-Tech/codescan/internal/session"
	"github.com/MeKo-Tech/codescan/internal/still"
)

// DefaultFrameRate drives the default frame scheduler.
const DefaultFrameRate = 60

// Host describes the embedding environment.
type Host struct {
	// EnableImage and EnableStream are the scan entry points; at least one
	// is required.
	EnableImage  bool
	EnableStream bool

	// Surfaces is required for stream scanning.
	Surfaces *capture.Surfaces
	// Capture supplies camera resources. Without it every stream scan
	// reports ERR_NO_MEDIA.
	Capture capture.MediaCapture
	// Scheduler defaults to a frame scheduler at DefaultFrameRate.
	Scheduler scheduler.Scheduler
	// Fs backs StartImageFile; defaults to the OS filesystem.
	Fs afero.Fs

	Sink   event.Sink
	Logger *slog.Logger
}

// Config bundles pipeline and session settings.
type Config struct {
	Pipeline pipeline.Config
	Session  session.Config
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{Pipeline: pipeline.DefaultConfig(), Session: session.DefaultConfig()}
}

// Scanner owns the detection pipeline, the still-image flow and, when
// stream scanning is enabled, one stream session.
type Scanner struct {
	host     Host
	pipeline *pipeline.Pipeline
	still    *still.Flow
	session  *session.Session
	owned    *scheduler.Frame
}

// New validates the host environment and builds the scanner.
func New(host *Host, cfg Config) (*Scanner, error) {
	if host == nil {
		return nil, scanerr.New(scanerr.NoWindow)
	}
	if !host.EnableImage && !host.EnableStream {
		return nil, scanerr.New(scanerr.NoTriggerButtons)
	}
	if host.EnableStream && host.Surfaces == nil {
		return nil, scanerr.New(scanerr.NoDocument)
	}

	h := *host
	if h.Sink == nil {
		h.Sink = event.Discard
	}
	if h.Fs == nil {
		h.Fs = afero.NewOsFs()
	}
	if h.Capture == nil {
		h.Capture = noMedia{}
	}

	p, err := pipeline.NewBuilder().WithConfig(cfg.Pipeline).Build()
	if err != nil {
		return nil, scanerr.Wrap(scanerr.Internal, err)
	}
	s := &Scanner{host: h, pipeline: p, still: still.New(p, h.Sink)}

	if h.EnableStream {
		if h.Scheduler == nil {
			s.owned = scheduler.NewFrame(DefaultFrameRate)
			h.Scheduler = s.owned
		}
		sessCfg := cfg.Session
		sessCfg.Thresholds = cfg.Pipeline.Thresholds
		sess, err := session.New(sessCfg, session.Deps{
			Capture:     h.Capture,
			Surfaces:    h.Surfaces,
			Scheduler:   h.Scheduler,
			Detector:    p,
			NewDetector: s.detectorFor,
			Sink:        h.Sink,
			Logger:      h.Logger,
		})
		if err != nil {
			s.closeScheduler()
			return nil, scanerr.Wrap(scanerr.Internal, err)
		}
		s.session = sess
	}
	return s, nil
}

// detectorFor returns the pipeline to use for a stream started with th.
func (s *Scanner) detectorFor(th planner.Thresholds) (session.Detector, error) {
	if th == s.pipeline.Config().Thresholds {
		return s.pipeline, nil
	}
	p, err := s.pipeline.WithThresholds(th)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Pipeline exposes the detection pipeline.
func (s *Scanner) Pipeline() *pipeline.Pipeline { return s.pipeline }

// Session returns the stream session, or nil when streaming is disabled.
func (s *Scanner) Session() *session.Session { return s.session }

// StartImageScan scans encoded image bytes of the given MIME type.
func (s *Scanner) StartImageScan(data []byte, mimeType string) scanerr.Result {
	if !s.host.EnableImage {
		return scanerr.FailureCode(scanerr.NoTriggerButtons)
	}
	return s.still.Scan(data, mimeType)
}

// StartImageFile scans a file from the host filesystem.
func (s *Scanner) StartImageFile(path string) scanerr.Result {
	if !s.host.EnableImage {
		return scanerr.FailureCode(scanerr.NoTriggerButtons)
	}
	return s.still.ScanFile(s.host.Fs, path)
}

// StartStreamScan starts streaming on surfaceID. Nil thresholds use the
// configured defaults; explicit thresholds also drive preprocessing for
// this scan.
func (s *Scanner) StartStreamScan(surfaceID string, th *planner.Thresholds) error {
	if s.session == nil {
		return scanerr.New(scanerr.NoTriggerButtons)
	}
	return s.session.Start(surfaceID, th)
}

// StopStreamScan stops the running stream scan, if any.
func (s *Scanner) StopStreamScan() {
	if s.session != nil {
		s.session.Stop()
	}
}

// Close releases the session and any scheduler the scanner created.
func (s *Scanner) Close() {
	if s.session != nil {
		s.session.Close()
	}
	s.closeScheduler()
}

func (s *Scanner) closeScheduler() {
	if s.owned != nil {
		s.owned.Close()
	}
}

// ErrorCodes returns the stable error code table.
func ErrorCodes() map[string]scanerr.Code { return scanerr.Codes() }

type noMedia struct{}

func (noMedia) Acquire(context.Context, capture.Constraints) (capture.Resource, error) {
	return nil, errors.New("no media capture configured")
}
