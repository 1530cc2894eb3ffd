package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/codec"
	"github.com/MeKo-Tech/codescan/internal/frame"
	"github.com/MeKo-Tech/codescan/internal/metrics"
	"github.com/MeKo-Tech/codescan/internal/planner"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

// Pipeline composes the planner and decode cascade. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	planner *planner.Planner
	cascade *barcode.Cascade
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// WithThresholds returns a pipeline that shares p's decoders but plans
// candidates with th.
func (p *Pipeline) WithThresholds(th planner.Thresholds) (*Pipeline, error) {
	pl, err := planner.New(th)
	if err != nil {
		return nil, err
	}
	cfg := p.cfg
	cfg.Thresholds = th
	return &Pipeline{cfg: cfg, planner: pl, cascade: p.cascade}, nil
}

// Decoders returns the cascade order.
func (p *Pipeline) Decoders() []string { return p.cascade.Decoders() }

// DetectImage decodes an encoded image container and scans it.
func (p *Pipeline) DetectImage(data []byte) scanerr.Result {
	start := time.Now()
	img, meta, err := codec.DecodeBytes(data)
	if err != nil {
		res := scanerr.Failure(scanerr.Wrap(scanerr.DecodeFailed, err))
		observe(metrics.ModeImage, res, start)
		return res
	}
	slog.Debug("Decoded image", "format", meta.Format, "width", meta.Width, "height", meta.Height)

	res := p.detect(frame.FromImage(img))
	observe(metrics.ModeImage, res, start)
	return res
}

// DetectFrame scans a raw grayscale frame of width×height bytes.
func (p *Pipeline) DetectFrame(pix []byte, width, height int) scanerr.Result {
	start := time.Now()
	var res scanerr.Result
	if buf, err := frame.New(pix, width, height); err != nil {
		res = scanerr.Failure(scanerr.Wrap(scanerr.Internal, err))
	} else {
		res = p.detect(buf)
	}
	observe(metrics.ModeStream, res, start)
	return res
}

// DetectBuffer scans an already normalized frame without recording metrics.
func (p *Pipeline) DetectBuffer(buf frame.Buffer) scanerr.Result {
	return p.detect(buf)
}

func (p *Pipeline) detect(buf frame.Buffer) (res scanerr.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Detection panicked", "panic", r)
			res = scanerr.Failure(scanerr.Wrap(scanerr.Internal, fmt.Errorf("panic: %v", r)))
		}
	}()

	var match barcode.Match
	found := false
	err := p.planner.Walk(buf, func(c planner.Candidate, prepared frame.Buffer) bool {
		metrics.CandidateTried(string(c.Kind))
		m, decErr := p.cascade.Decode(prepared)
		if decErr != nil {
			return false
		}
		slog.Debug("Candidate decoded", "candidate", c.Kind, "decoder", m.Decoder)
		match, found = m, true
		return true
	})
	if errors.Is(err, planner.ErrTooSmall) {
		return scanerr.Failure(scanerr.Wrap(scanerr.ImageTooSmall, err))
	}
	if err != nil {
		return scanerr.Failure(scanerr.Wrap(scanerr.Internal, err))
	}
	if !found {
		return scanerr.FailureCode(scanerr.NotDetected)
	}
	return scanerr.Success(match.Text, match.Format.String())
}

func observe(mode string, res scanerr.Result, start time.Time) {
	status := "success"
	if !res.OK() {
		status = string(res.Code())
	}
	metrics.ObserveDetection(mode, status, time.Since(start))
}
