// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/pcapture/internal/core"
)

// Config represents the top-level configuration.
// Maps to the `pcapture:` root key in YAML.
type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture"`
	Output   OutputConfig   `mapstructure:"output"`
	Progress ProgressConfig `mapstructure:"progress"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Hooks    HooksConfig    `mapstructure:"hooks"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─── Capture ───

// CaptureConfig contains capture handle settings.
type CaptureConfig struct {
	Backend     string        `mapstructure:"backend"` // pcap | afpacket
	SnapLen     int           `mapstructure:"snaplen"`
	Promiscuous bool          `mapstructure:"promiscuous"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	MaxDuration time.Duration `mapstructure:"max_duration"` // 0 = unlimited
	Device      string        `mapstructure:"device"`       // Empty = default device
}

// ─── Output ───

// OutputConfig controls where the capture file goes.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	FileName  string `mapstructure:"file_name"`
	Policy    string `mapstructure:"policy"`     // overwrite | version
	SyncEvery int    `mapstructure:"sync_every"` // fsync every N records, 0 = on finalize only
}

// ─── Progress ───

// ProgressConfig controls progress rendering.
type ProgressConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Width           int           `mapstructure:"width"`
	Quiet           bool          `mapstructure:"quiet"`
}

// ─── Post-capture hooks ───

// ViewerConfig names the external analysis tool offered after an interactive capture.
type ViewerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// HooksConfig contains the optional non-interactive post-capture hooks.
type HooksConfig struct {
	Kafka KafkaHookConfig `mapstructure:"kafka"`
	S3    S3HookConfig    `mapstructure:"s3"`
}

// KafkaHookConfig publishes a session summary to Kafka.
type KafkaHookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// S3HookConfig uploads the capture file to S3.
type S3HookConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Bucket   string        `mapstructure:"bucket"`
	Prefix   string        `mapstructure:"prefix"`
	Region   string        `mapstructure:"region"`
	Endpoint string        `mapstructure:"endpoint"` // Optional, for S3-compatible stores
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string           `mapstructure:"level"`  // debug / info / warn / error
	Format string           `mapstructure:"format"` // json / text
	File   FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pcapture: ...`.
type configRoot struct {
	Pcapture Config `mapstructure:"pcapture"`
}

// Option customizes Load.
type Option func(v *viper.Viper) error

// WithFlag binds a command-line flag to a config key (without the `pcapture.` prefix).
// The flag only overrides the file/env value when it was set explicitly.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return nil
		}
		return v.BindPFlag("pcapture."+key, flag)
	}
}

// Load loads configuration from an optional file, PCAPTURE_* environment variables
// and bound flags. An empty path skips the file; nothing persists between runs.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", core.ErrConfigInvalid, err)
		}
	}

	// Key "pcapture.capture.snaplen" maps to env "PCAPTURE_CAPTURE_SNAPLEN".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
		}
	}

	var root configRoot
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&root, hook); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", core.ErrConfigInvalid, err)
	}
	cfg := root.Pcapture

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "pcapture." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("pcapture.capture.backend", string(core.BackendPcap))
	v.SetDefault("pcapture.capture.snaplen", 5000)
	v.SetDefault("pcapture.capture.promiscuous", true)
	v.SetDefault("pcapture.capture.read_timeout", "1s")
	v.SetDefault("pcapture.capture.max_duration", "0s")
	v.SetDefault("pcapture.capture.device", "")

	// Output defaults
	v.SetDefault("pcapture.output.dir", "captured_packets")
	v.SetDefault("pcapture.output.file_name", "capture.pcap")
	v.SetDefault("pcapture.output.policy", "overwrite")
	v.SetDefault("pcapture.output.sync_every", 0)

	// Progress defaults
	v.SetDefault("pcapture.progress.refresh_interval", "100ms")
	v.SetDefault("pcapture.progress.width", 30)
	v.SetDefault("pcapture.progress.quiet", false)

	// Viewer defaults
	v.SetDefault("pcapture.viewer.command", "wireshark")
	v.SetDefault("pcapture.viewer.args", []string{})

	// Hook defaults
	v.SetDefault("pcapture.hooks.kafka.enabled", false)
	v.SetDefault("pcapture.hooks.kafka.brokers", []string{})
	v.SetDefault("pcapture.hooks.kafka.topic", "pcapture.sessions")
	v.SetDefault("pcapture.hooks.kafka.timeout", "5s")
	v.SetDefault("pcapture.hooks.s3.enabled", false)
	v.SetDefault("pcapture.hooks.s3.bucket", "")
	v.SetDefault("pcapture.hooks.s3.prefix", "")
	v.SetDefault("pcapture.hooks.s3.region", "")
	v.SetDefault("pcapture.hooks.s3.endpoint", "")
	v.SetDefault("pcapture.hooks.s3.timeout", "60s")

	// Metrics defaults
	v.SetDefault("pcapture.metrics.enabled", false)
	v.SetDefault("pcapture.metrics.listen", ":9091")
	v.SetDefault("pcapture.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("pcapture.log.level", "warn")
	v.SetDefault("pcapture.log.format", "text")
	v.SetDefault("pcapture.log.file.enabled", false)
	v.SetDefault("pcapture.log.file.path", "pcapture.log")
	v.SetDefault("pcapture.log.file.max_size_mb", 10)
	v.SetDefault("pcapture.log.file.max_backups", 3)
	v.SetDefault("pcapture.log.file.max_age_days", 7)
	v.SetDefault("pcapture.log.file.compress", true)
}

// Validate checks field values and cross-field requirements.
func (cfg *Config) Validate() error {
	// ── Log ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if f := strings.ToLower(cfg.Log.Format); f != "json" && f != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Capture ──
	switch core.Backend(cfg.Capture.Backend) {
	case core.BackendPcap, core.BackendAFPacket:
	default:
		return fmt.Errorf("%w: invalid capture backend: %s (must be pcap/afpacket)", core.ErrConfigInvalid, cfg.Capture.Backend)
	}
	if cfg.Capture.SnapLen < core.MinSnapLen || cfg.Capture.SnapLen > core.MaxSnapLen {
		return fmt.Errorf("%w: capture.snaplen must be within [%d, %d], got %d",
			core.ErrConfigInvalid, core.MinSnapLen, core.MaxSnapLen, cfg.Capture.SnapLen)
	}
	if cfg.Capture.ReadTimeout <= 0 {
		return fmt.Errorf("%w: capture.read_timeout must be positive", core.ErrConfigInvalid)
	}
	if cfg.Capture.MaxDuration < 0 {
		return fmt.Errorf("%w: capture.max_duration must not be negative", core.ErrConfigInvalid)
	}

	// ── Output ──
	if cfg.Output.Policy != "overwrite" && cfg.Output.Policy != "version" {
		return fmt.Errorf("%w: invalid output policy: %s (must be overwrite/version)", core.ErrConfigInvalid, cfg.Output.Policy)
	}
	if cfg.Output.FileName == "" {
		return fmt.Errorf("%w: output.file_name is required", core.ErrConfigInvalid)
	}
	if cfg.Output.SyncEvery < 0 {
		return fmt.Errorf("%w: output.sync_every must not be negative", core.ErrConfigInvalid)
	}

	// ── Progress ──
	if cfg.Progress.RefreshInterval <= 0 {
		return fmt.Errorf("%w: progress.refresh_interval must be positive", core.ErrConfigInvalid)
	}

	// ── Hooks ──
	if cfg.Hooks.Kafka.Enabled {
		if len(cfg.Hooks.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: hooks.kafka.brokers is required when hooks.kafka.enabled=true", core.ErrConfigInvalid)
		}
		if cfg.Hooks.Kafka.Topic == "" {
			return fmt.Errorf("%w: hooks.kafka.topic is required when hooks.kafka.enabled=true", core.ErrConfigInvalid)
		}
	}
	if cfg.Hooks.S3.Enabled && cfg.Hooks.S3.Bucket == "" {
		return fmt.Errorf("%w: hooks.s3.bucket is required when hooks.s3.enabled=true", core.ErrConfigInvalid)
	}

	return nil
}
