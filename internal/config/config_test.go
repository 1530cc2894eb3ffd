package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/planner"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60, cfg.Scan.MinDimension)
	assert.Equal(t, 1024, cfg.Scan.OptimalDimension)
	assert.InDelta(t, 0.5, cfg.Scan.CropFactor, 1e-9)
	assert.InDelta(t, 0.9, cfg.Scan.ResizeFactor, 1e-9)
	assert.Equal(t, 3, cfg.Scan.RequiredConsecutiveDetections)
	assert.Equal(t, 100, cfg.Scan.MinSampleIntervalMS)
	assert.Equal(t, []string(barcode.DefaultStrategy()), cfg.Decode.Strategy)
	assert.Equal(t, "environment", cfg.Stream.FacingMode)
	assert.Equal(t, "text", cfg.Output.Format)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"negative interval", func(c *Config) { c.Scan.MinSampleIntervalMS = -1 }, "min_sample_interval_ms"},
		{"zero min dimension", func(c *Config) { c.Scan.MinDimension = 0 }, "scan:"},
		{"crop factor above one", func(c *Config) { c.Scan.CropFactor = 1.5 }, "scan:"},
		{"unknown decoder", func(c *Config) { c.Decode.Strategy = []string{"qr", "morse"} }, "decode:"},
		{"empty strategy", func(c *Config) { c.Decode.Strategy = nil }, "decode:"},
		{"zero frame rate", func(c *Config) { c.Stream.FrameRate = 0 }, "frame_rate"},
		{"facing mode", func(c *Config) { c.Stream.FacingMode = "sideways" }, "facing_mode"},
		{"device id", func(c *Config) { c.Stream.DeviceID = -2 }, "device_id"},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	cfg.Output.Format = "csv"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.MinSampleIntervalMS = 250
	cfg.Decode.Strategy = []string{"qr", "code128"}
	cfg.Decode.TryHarder = true
	cfg.Stream.FacingMode = "user"

	th := cfg.Thresholds()
	assert.Equal(t, 250*time.Millisecond, th.MinSampleInterval)
	assert.Equal(t, planner.DefaultThresholds().OptimalDimension, th.OptimalDimension)

	pc := cfg.ToPipelineConfig()
	assert.Equal(t, barcode.Strategy{"qr", "code128"}, pc.Strategy)
	assert.True(t, pc.Decode.TryHarder)
	assert.Equal(t, th, pc.Thresholds)

	// The pipeline copy must not alias the config slice.
	pc.Strategy[0] = "aztec"
	assert.Equal(t, "qr", cfg.Decode.Strategy[0])

	sc := cfg.ToSessionConfig()
	assert.Equal(t, capture.FacingUser, sc.Constraints.FacingMode)
	assert.Equal(t, th, sc.Thresholds)

	all := cfg.ToScannerConfig()
	assert.Equal(t, th, all.Pipeline.Thresholds)
	assert.Equal(t, capture.FacingUser, all.Session.Constraints.FacingMode)
}
