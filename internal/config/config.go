// Package config loads rider-share settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/rudransh-shrivastava/rider-share/internal/discovery"
	"github.com/rudransh-shrivastava/rider-share/internal/receiver"
	"github.com/rudransh-shrivastava/rider-share/internal/transfer"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RIDERSHARE_SERVER_PORT.
const EnvPrefix = "RIDERSHARE"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"server"`
	Receiver  ReceiverConfig  `yaml:"receiver" envconfig:"receiver"`
	History   HistoryConfig   `yaml:"history" envconfig:"history"`
	Events    EventsConfig    `yaml:"events" envconfig:"events"`
	Discovery DiscoveryConfig `yaml:"discovery" envconfig:"discovery"`
	Log       LogConfig       `yaml:"log" envconfig:"log"`
}

type ServerConfig struct {
	Host        string        `yaml:"host" envconfig:"host" validate:"required"`
	Port        uint16        `yaml:"port" envconfig:"port"`
	IdleTimeout time.Duration `yaml:"idle_timeout" envconfig:"idle_timeout" validate:"gte=0"`
}

type ReceiverConfig struct {
	Dir            string `yaml:"dir" envconfig:"dir" validate:"required"`
	FileName       string `yaml:"file_name" envconfig:"file_name" validate:"required,excludesall=/\\"`
	PathMode       string `yaml:"path_mode" envconfig:"path_mode" validate:"oneof=fixed session timestamp"`
	MaxBufferBytes int64  `yaml:"max_buffer_bytes" envconfig:"max_buffer_bytes" validate:"gte=0"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"enabled"`
	Path    string `yaml:"path" envconfig:"path" validate:"required_if=Enabled true"`
}

type EventsConfig struct {
	// Addr serves the WebSocket event stream when set, e.g. ":5001".
	Addr string `yaml:"addr" envconfig:"addr" validate:"omitempty,hostname_port"`
}

type DiscoveryConfig struct {
	BlueZDir string `yaml:"bluez_dir" envconfig:"bluez_dir" validate:"required"`
	SysfsDir string `yaml:"sysfs_dir" envconfig:"sysfs_dir" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" envconfig:"level" validate:"oneof=trace debug info warn warning error"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: transfer.DefaultHost,
			Port: transfer.DefaultPort,
		},
		Receiver: ReceiverConfig{
			Dir:            "./received",
			FileName:       receiver.DefaultFileName,
			PathMode:       string(receiver.PathFixed),
			MaxBufferBytes: receiver.DefaultMaxBufferBytes,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "rider-share.sqlite3",
		},
		Discovery: DiscoveryConfig{
			BlueZDir: discovery.DefaultBlueZDir,
			SysfsDir: discovery.DefaultSysfsDir,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load applies, in order: defaults, the YAML file at path (skipped when path
// is empty), and RIDERSHARE_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalid, path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) ReceiverOptions() receiver.Options {
	return receiver.Options{
		FileName:       c.Receiver.FileName,
		PathMode:       receiver.PathMode(c.Receiver.PathMode),
		MaxBufferBytes: c.Receiver.MaxBufferBytes,
	}
}
