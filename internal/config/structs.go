//nolint:lll
package config

// Config represents the complete configuration for the codescan application.
// It is loaded from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Preprocessing and confirmation thresholds
	Scan ScanConfig `mapstructure:"scan" yaml:"scan" json:"scan"`

	// Decoder cascade
	Decode DecodeConfig `mapstructure:"decode" yaml:"decode" json:"decode"`

	// Stream scanning (stream command)
	Stream StreamConfig `mapstructure:"stream" yaml:"stream" json:"stream"`

	// Remote capture endpoint
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture" json:"capture"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// ScanConfig contains planner and stability thresholds.
type ScanConfig struct {
	MinDimension                  int     `mapstructure:"min_dimension" yaml:"min_dimension" json:"min_dimension"`
	OptimalDimension              int     `mapstructure:"optimal_dimension" yaml:"optimal_dimension" json:"optimal_dimension"`
	CropFactor                    float64 `mapstructure:"crop_factor" yaml:"crop_factor" json:"crop_factor"`
	ResizeFactor                  float64 `mapstructure:"resize_factor" yaml:"resize_factor" json:"resize_factor"`
	RequiredConsecutiveDetections int     `mapstructure:"required_consecutive_detections" yaml:"required_consecutive_detections" json:"required_consecutive_detections"`
	MinSampleIntervalMS           int     `mapstructure:"min_sample_interval_ms" yaml:"min_sample_interval_ms" json:"min_sample_interval_ms"`
}

// DecodeConfig selects and orders decoder capabilities.
type DecodeConfig struct {
	Strategy  []string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	TryHarder bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
}

// StreamConfig contains stream command settings.
type StreamConfig struct {
	// Source is a directory, an image file, "ws" or "camera".
	Source     string  `mapstructure:"source" yaml:"source" json:"source"`
	FrameRate  float64 `mapstructure:"frame_rate" yaml:"frame_rate" json:"frame_rate"`
	FacingMode string  `mapstructure:"facing_mode" yaml:"facing_mode" json:"facing_mode"`
	Loop       bool    `mapstructure:"loop" yaml:"loop" json:"loop"`
	DeviceID   int     `mapstructure:"device_id" yaml:"device_id" json:"device_id"`
}

// CaptureConfig contains the websocket capture endpoint settings.
type CaptureConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" json:"listen_addr"`
}

// MetricsConfig contains the Prometheus endpoint settings. An empty address
// disables the endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}
