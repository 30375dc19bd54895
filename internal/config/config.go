// Package config loads the server's static configuration: the TCP listener
// settings, the export table, and the ambient logging/metrics knobs. Dynamic
// state (the mount table, in-memory filesystem contents) lives elsewhere and
// is never persisted here.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (NFSD3_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Server  ServerConfig   `mapstructure:"server" yaml:"server"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Exports []ExportConfig `mapstructure:"exports" validate:"required,min=1,dive" yaml:"exports"`
}

// LoggingConfig controls logger output.
type LoggingConfig struct {
	// Level is the minimum level logged. Valid: debug, info, warn, error.
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error" yaml:"level"`
	// Format selects the handler. Valid: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig holds the TCP listener's tunables.
type ServerConfig struct {
	// ListenAddr is the address the server binds for PORTMAP, MOUNT, and NFS
	// traffic, all multiplexed on this one port.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// MaxConnections caps concurrent TCP connections. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0" yaml:"max_connections"`

	// MaxRequestsPerConn caps concurrent in-flight requests on one connection.
	MaxRequestsPerConn int `mapstructure:"max_requests_per_conn" validate:"gte=0" yaml:"max_requests_per_conn"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxRecordSize caps one RPC record-marking fragment train, in bytes.
	MaxRecordSize int `mapstructure:"max_record_size" validate:"gte=0" yaml:"max_record_size"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ExportConfig is one directory this server exposes over MOUNT/NFS.
type ExportConfig struct {
	// Path is the dirpath clients pass to MNT, e.g. "/export".
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// Backend selects the FSAL implementation. Only "memory" exists today.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory" yaml:"backend"`

	// ClientPatterns, if non-empty, restricts MNT to matching client hosts.
	ClientPatterns []string `mapstructure:"client_patterns" yaml:"client_patterns,omitempty"`
}

// Load reads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		// Seed viper with the defaults so NFSD3_* variables still apply.
		data, err := yaml.Marshal(GetDefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
			return nil, fmt.Errorf("failed to load default config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyDefaults fills in zero-valued fields with production defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":2049"
	}
	if cfg.Server.MaxRequestsPerConn == 0 {
		cfg.Server.MaxRequestsPerConn = 64
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 5 * time.Minute
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 5 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxRecordSize == 0 {
		cfg.Server.MaxRecordSize = 1 << 20
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	for i := range cfg.Exports {
		if cfg.Exports[i].Backend == "" {
			cfg.Exports[i].Backend = "memory"
		}
	}
}

// validatorInstance is shared across calls; it is safe for concurrent use.
var validatorInstance = validator.New()

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validatorInstance.Struct(cfg); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfg.Exports))
	for _, e := range cfg.Exports {
		if seen[e.Path] {
			return fmt.Errorf("duplicate export path %q", e.Path)
		}
		seen[e.Path] = true
	}
	return nil
}

// GetDefaultConfig returns a Config with defaults applied and a single
// "/export" memory-backed export, suitable for a fresh install.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Exports: []ExportConfig{
			{Path: "/export", Backend: "memory"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("NFSD3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nfsd3")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "nfsd3")
}

// GetDefaultConfigPath returns the default configuration file location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
