package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "codescan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "CODESCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that cobra flag
// bindings made on it are honored.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on a private viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the configuration from the search paths, environment variables
// and defaults, and validates it.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations, where a missing file is not an error.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation is LoadWithFile without the Validate step.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Watch re-reads the configuration whenever the config file changes and
// passes the validated result to onChange. Invalid reloads are logged and
// skipped. Load must have found a file first.
func (l *Loader) Watch(onChange func(*Config)) error {
	if l.v.ConfigFileUsed() == "" {
		return errors.New("no config file loaded to watch")
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.unmarshal()
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			slog.Warn("Ignoring invalid configuration reload", "file", e.Name, "error", err)
			return
		}
		slog.Info("Configuration reloaded", "file", e.Name)
		onChange(cfg)
	})
	l.v.WatchConfig()
	return nil
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// scan.min_dimension is read from CODESCAN_SCAN_MIN_DIMENSION.
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("scan.min_dimension", defaults.Scan.MinDimension)
	l.v.SetDefault("scan.optimal_dimension", defaults.Scan.OptimalDimension)
	l.v.SetDefault("scan.crop_factor", defaults.Scan.CropFactor)
	l.v.SetDefault("scan.resize_factor", defaults.Scan.ResizeFactor)
	l.v.SetDefault("scan.required_consecutive_detections", defaults.Scan.RequiredConsecutiveDetections)
	l.v.SetDefault("scan.min_sample_interval_ms", defaults.Scan.MinSampleIntervalMS)

	l.v.SetDefault("decode.strategy", defaults.Decode.Strategy)
	l.v.SetDefault("decode.try_harder", defaults.Decode.TryHarder)

	l.v.SetDefault("stream.source", defaults.Stream.Source)
	l.v.SetDefault("stream.frame_rate", defaults.Stream.FrameRate)
	l.v.SetDefault("stream.facing_mode", defaults.Stream.FacingMode)
	l.v.SetDefault("stream.loop", defaults.Stream.Loop)
	l.v.SetDefault("stream.device_id", defaults.Stream.DeviceID)

	l.v.SetDefault("capture.listen_addr", defaults.Capture.ListenAddr)
	l.v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// GenerateDefaultConfigFile writes the defaults to filename, or to
// codescan.yaml when filename is empty.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "codescan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "codescan"))
	}

	return append(paths, "/etc/codescan")
}
