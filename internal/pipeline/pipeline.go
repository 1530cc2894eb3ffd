package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/planner"
)

// Config holds configuration for the detection pipeline.
type Config struct {
	Thresholds planner.Thresholds
	Strategy   barcode.Strategy
	Decode     barcode.Options
}

// DefaultConfig returns default thresholds and the default decode strategy.
func DefaultConfig() Config {
	return Config{
		Thresholds: planner.DefaultThresholds(),
		Strategy:   barcode.DefaultStrategy(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg         Config
	decoders    []barcode.Decoder
	decodersSet bool
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithThresholds sets the preprocessing thresholds.
func (b *Builder) WithThresholds(th planner.Thresholds) *Builder {
	b.cfg.Thresholds = th
	return b
}

// WithStrategy sets the ordered decoder identifiers. An empty list keeps the
// current strategy.
func (b *Builder) WithStrategy(ids []string) *Builder {
	if len(ids) > 0 {
		b.cfg.Strategy = append(barcode.Strategy(nil), ids...)
	}
	return b
}

// WithTryHarder toggles exhaustive decoding.
func (b *Builder) WithTryHarder(on bool) *Builder {
	b.cfg.Decode.TryHarder = on
	return b
}

// WithDecoders installs explicit decoder capabilities, bypassing the
// strategy lookup.
func (b *Builder) WithDecoders(ds ...barcode.Decoder) *Builder {
	b.decoders = append([]barcode.Decoder(nil), ds...)
	b.decodersSet = true
	return b
}

// Config returns a copy of the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	pl, err := planner.New(b.cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	var cascade *barcode.Cascade
	if b.decodersSet {
		if len(b.decoders) == 0 {
			return nil, errors.New("no decoders configured")
		}
		cascade = barcode.NewCascade(b.decoders...)
	} else {
		cascade, err = barcode.NewCascadeFromStrategy(b.cfg.Strategy, b.cfg.Decode)
		if err != nil {
			return nil, fmt.Errorf("decode strategy: %w", err)
		}
	}

	return &Pipeline{cfg: b.cfg, planner: pl, cascade: cascade}, nil
}
