package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Apcupsd  ApcupsdConfig  `mapstructure:"apcupsd" yaml:"apcupsd"`
	Exporter ExporterConfig `mapstructure:"exporter" yaml:"exporter"`
	Logging  logger.Config  `mapstructure:"logging" yaml:"logging"`

	// ConfigFile is the file the configuration was read from, empty when
	// only defaults and environment were used.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// ApcupsdConfig describes the NIS endpoint to poll
type ApcupsdConfig struct {
	Host       string        `mapstructure:"host" yaml:"host"`
	Port       uint16        `mapstructure:"port" yaml:"port"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	StripUnits bool          `mapstructure:"strip_units" yaml:"strip_units"`
}

// ExporterConfig describes the HTTP side and the poll schedule
type ExporterConfig struct {
	ListenAddress       string        `mapstructure:"listen_address" yaml:"listen_address"`
	Port                uint16        `mapstructure:"port" yaml:"port"`
	MetricsPath         string        `mapstructure:"metrics_path" yaml:"metrics_path"`
	Interval            time.Duration `mapstructure:"interval" yaml:"interval"`
	RequireInitialFetch bool          `mapstructure:"require_initial_fetch" yaml:"require_initial_fetch"`
}

// Addr returns the address the HTTP server binds to
func (e ExporterConfig) Addr() string {
	return net.JoinHostPort(e.ListenAddress, strconv.Itoa(int(e.Port)))
}

// MarshalYAML writes the timeout as a duration string so the output can be
// read back by Load
func (a ApcupsdConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Host       string `yaml:"host"`
		Port       uint16 `yaml:"port"`
		Timeout    string `yaml:"timeout"`
		StripUnits bool   `yaml:"strip_units"`
	}{a.Host, a.Port, a.Timeout.String(), a.StripUnits}, nil
}

// MarshalYAML writes the interval as a duration string
func (e ExporterConfig) MarshalYAML() (interface{}, error) {
	return struct {
		ListenAddress       string `yaml:"listen_address"`
		Port                uint16 `yaml:"port"`
		MetricsPath         string `yaml:"metrics_path"`
		Interval            string `yaml:"interval"`
		RequireInitialFetch bool   `yaml:"require_initial_fetch"`
	}{e.ListenAddress, e.Port, e.MetricsPath, e.Interval.String(), e.RequireInitialFetch}, nil
}

// YAML renders the effective configuration in config file form
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

var defaultConfig = Config{
	Apcupsd: ApcupsdConfig{
		Host:       "localhost",
		Port:       3551,
		Timeout:    15 * time.Second,
		StripUnits: true,
	},
	Exporter: ExporterConfig{
		ListenAddress:       "0.0.0.0",
		Port:                8080,
		MetricsPath:         "/metrics",
		Interval:            10 * time.Second,
		RequireInitialFetch: true,
	},
	Logging: logger.Config{
		Level:  "info",
		Output: "stdout",
		Format: "console",
		File: logger.FileConfig{
			Path:       "/var/log/apcupsd-exporter/exporter.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	},
}

// Default returns a copy of the built-in configuration
func Default() Config {
	return defaultConfig
}

// Load reads configuration from file (optional) and the environment.
// Environment variables win over the file, the file wins over defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("apcupsd-exporter")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/apcupsd-exporter/")
		v.AddConfigPath("$HOME/.apcupsd-exporter/")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	applyEnv(v, os.LookupEnv)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig

	v.SetDefault("apcupsd.host", d.Apcupsd.Host)
	v.SetDefault("apcupsd.port", d.Apcupsd.Port)
	v.SetDefault("apcupsd.timeout", d.Apcupsd.Timeout)
	v.SetDefault("apcupsd.strip_units", d.Apcupsd.StripUnits)

	v.SetDefault("exporter.listen_address", d.Exporter.ListenAddress)
	v.SetDefault("exporter.port", d.Exporter.Port)
	v.SetDefault("exporter.metrics_path", d.Exporter.MetricsPath)
	v.SetDefault("exporter.interval", d.Exporter.Interval)
	v.SetDefault("exporter.require_initial_fetch", d.Exporter.RequireInitialFetch)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file.path", d.Logging.File.Path)
	v.SetDefault("logging.file.max_size_mb", d.Logging.File.MaxSizeMB)
	v.SetDefault("logging.file.max_backups", d.Logging.File.MaxBackups)
	v.SetDefault("logging.file.max_age_days", d.Logging.File.MaxAgeDays)
	v.SetDefault("logging.file.compress", d.Logging.File.Compress)
}

// envBinding maps an environment variable onto a config key. parse returns
// false for unusable values, which are ignored in favour of the lower layers.
type envBinding struct {
	name  string
	key   string
	parse func(string) (interface{}, bool)
}

var envBindings = []envBinding{
	{"APCUPSD_HOST", "apcupsd.host", parseNonEmpty},
	{"APCUPSD_PORT", "apcupsd.port", parsePort},
	{"APCUPSD_STRIP_UNITS", "apcupsd.strip_units", parseBool},
	{"TIMEOUT", "apcupsd.timeout", parseSeconds},
	{"METRICS_PORT", "exporter.port", parsePort},
	{"INTERVAL", "exporter.interval", parseSeconds},
	{"LOG_LEVEL", "logging.level", parseNonEmpty},
}

func applyEnv(v *viper.Viper, lookup func(string) (string, bool)) {
	for _, b := range envBindings {
		raw, ok := lookup(b.name)
		if !ok {
			continue
		}
		val, ok := b.parse(strings.TrimSpace(raw))
		if !ok {
			logger.Warn("Ignoring invalid environment value",
				logger.String("env", b.name),
				logger.String("value", raw))
			continue
		}
		v.Set(b.key, val)
	}
}

func parseNonEmpty(s string) (interface{}, bool) {
	return s, s != ""
}

func parsePort(s string) (interface{}, bool) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil || p == 0 {
		return nil, false
	}
	return uint16(p), true
}

func parseBool(s string) (interface{}, bool) {
	b, err := strconv.ParseBool(s)
	return b, err == nil
}

// parseSeconds accepts a plain number of seconds (as apcupsd deployments
// traditionally pass it) or a Go duration string.
func parseSeconds(s string) (interface{}, bool) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(n) * time.Second, n > 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return nil, false
	}
	return d, true
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsHook reads a bare number in a duration field as seconds, the same
// way the INTERVAL and TIMEOUT variables are read
func secondsHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}

	v := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(v.Int()) * time.Second, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(v.Uint()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(v.Float() * float64(time.Second)), nil
	case reflect.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
	}
	return data, nil
}

// Validate checks the configuration for values the exporter cannot run with
func Validate(cfg *Config) error {
	if cfg.Apcupsd.Host == "" {
		return fmt.Errorf("apcupsd.host is required")
	}
	if cfg.Apcupsd.Port == 0 {
		return fmt.Errorf("apcupsd.port must be between 1 and 65535")
	}
	if cfg.Apcupsd.Timeout <= 0 {
		return fmt.Errorf("apcupsd.timeout must be positive")
	}

	if cfg.Exporter.Port == 0 {
		return fmt.Errorf("exporter.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(cfg.Exporter.MetricsPath, "/") {
		return fmt.Errorf("exporter.metrics_path must start with '/', got: %q", cfg.Exporter.MetricsPath)
	}
	if cfg.Exporter.MetricsPath == "/" {
		return fmt.Errorf("exporter.metrics_path cannot be '/', it serves the landing page")
	}
	if cfg.Exporter.MetricsPath == "/healthz" {
		return fmt.Errorf("exporter.metrics_path cannot be '/healthz'")
	}
	if cfg.Exporter.Interval <= 0 {
		return fmt.Errorf("exporter.interval must be positive")
	}

	return nil
}
