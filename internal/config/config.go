package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/planner"
	"github.com/MeKo-Tech/codescan/internal/scanner"
	"github.com/MeKo-Tech/codescan/internal/session"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	th := planner.DefaultThresholds()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scan: ScanConfig{
			MinDimension:                  th.MinDimension,
			OptimalDimension:              th.OptimalDimension,
			CropFactor:                    th.CropFactor,
			ResizeFactor:                  th.ResizeFactor,
			RequiredConsecutiveDetections: th.RequiredConsecutiveDetections,
			MinSampleIntervalMS:           int(th.MinSampleInterval / time.Millisecond),
		},
		Decode: DecodeConfig{
			Strategy:  barcode.DefaultStrategy(),
			TryHarder: false,
		},
		Stream: StreamConfig{
			Source:     "camera",
			FrameRate:  60,
			FacingMode: string(capture.FacingEnvironment),
			Loop:       false,
		},
		Capture: CaptureConfig{ListenAddr: ":8090"},
		Metrics: MetricsConfig{Addr: ""},
		Output:  OutputConfig{Format: event.FormatText},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", c.LogLevel))
	}

	if c.Scan.MinSampleIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("scan.min_sample_interval_ms must not be negative, got %d", c.Scan.MinSampleIntervalMS))
	}
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scan: %w", err))
	}
	if err := barcode.Strategy(c.Decode.Strategy).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("decode: %w", err))
	}

	if c.Stream.FrameRate <= 0 || c.Stream.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("stream.frame_rate must be in (0, 240], got %g", c.Stream.FrameRate))
	}
	switch capture.FacingMode(c.Stream.FacingMode) {
	case capture.FacingEnvironment, capture.FacingUser:
	default:
		errs = append(errs, fmt.Errorf("invalid stream.facing_mode: %s (must be environment or user)", c.Stream.FacingMode))
	}
	if c.Stream.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("stream.device_id must not be negative, got %d", c.Stream.DeviceID))
	}

	switch c.Output.Format {
	case event.FormatText, event.FormatJSON, event.FormatYAML:
	default:
		errs = append(errs, fmt.Errorf("invalid output format: %s (must be text, json or yaml)", c.Output.Format))
	}

	return errors.Join(errs...)
}

// Thresholds converts the scan section.
func (c *Config) Thresholds() planner.Thresholds {
	return planner.Thresholds{
		MinDimension:                  c.Scan.MinDimension,
		OptimalDimension:              c.Scan.OptimalDimension,
		CropFactor:                    c.Scan.CropFactor,
		ResizeFactor:                  c.Scan.ResizeFactor,
		RequiredConsecutiveDetections: c.Scan.RequiredConsecutiveDetections,
		MinSampleInterval:             time.Duration(c.Scan.MinSampleIntervalMS) * time.Millisecond,
	}
}

// ToPipelineConfig converts the configuration to a pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Thresholds: c.Thresholds(),
		Strategy:   append(barcode.Strategy(nil), c.Decode.Strategy...),
		Decode:     barcode.Options{TryHarder: c.Decode.TryHarder},
	}
}

// ToSessionConfig converts the configuration to a stream session configuration.
func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		Thresholds: c.Thresholds(),
		Constraints: capture.Constraints{
			FacingMode: capture.FacingMode(c.Stream.FacingMode),
		},
	}
}

// ToScannerConfig bundles pipeline and session settings for the host facade.
func (c *Config) ToScannerConfig() scanner.Config {
	return scanner.Config{Pipeline: c.ToPipelineConfig(), Session: c.ToSessionConfig()}
}
