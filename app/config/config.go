package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xavierroma/go-rakis/app/engine"
)

// Config is fixed before the server starts serving and never reloaded. A
// MaxBodyBytes of 0 selects engine.DefaultMaxBodyBytes.
type Config struct {
	ListenPort uint16 `yaml:"listen_port"`
	// RootPath is prepended verbatim to request paths that no handler serves.
	RootPath     string        `yaml:"root_path"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Gzip         bool          `yaml:"gzip"`
	LogLevel     slog.Level    `yaml:"log_level"`
}

func Default() Config {
	return Config{
		ListenPort:   4221,
		RootPath:     ".",
		ReadTimeout:  5 * time.Second,
		IdleTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxBodyBytes: engine.DefaultMaxBodyBytes,
		LogLevel:     slog.LevelInfo,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.RootPath == "" {
		errs = append(errs, errors.New("root_path must not be empty"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("max_body_bytes must not be negative"))
	}
	if c.ReadTimeout < 0 || c.IdleTimeout < 0 || c.WriteTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
