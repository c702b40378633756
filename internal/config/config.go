package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

const (
	ExecutorStub    = "stub"
	ExecutorProcess = "process"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxFailures      uint32        `yaml:"max_failures"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	HalfOpenRequests uint32        `yaml:"half_open_requests"`
}

// RouteConfig sends tools whose name matches Pattern to their own process.
type RouteConfig struct {
	Pattern string   `yaml:"pattern"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
}

type ExecutorConfig struct {
	Kind        string        `yaml:"kind"`
	Command     string        `yaml:"command"`
	Args        []string      `yaml:"args"`
	Dir         string        `yaml:"dir"`
	Env         []string      `yaml:"env"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
	Routes      []RouteConfig `yaml:"routes"`
}

type ValidationConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxParamsSize int  `yaml:"max_params_size"`
}

// JournalConfig controls the call journal. Entries older than MaxAge are
// pruned at startup; zero keeps everything.
type JournalConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	MaxAge  time.Duration `yaml:"max_age"`
}

type ServerConfig struct {
	Socket string `yaml:"socket"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Validation ValidationConfig `yaml:"validation"`
	Journal    JournalConfig    `yaml:"journal"`
	Server     ServerConfig     `yaml:"server"`
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".memory-bank")

	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Executor: ExecutorConfig{
			Kind: ExecutorStub,
			Breaker: BreakerConfig{
				Enabled:          false,
				MaxFailures:      5,
				OpenTimeout:      30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Validation: ValidationConfig{
			Enabled:       false,
			MaxParamsSize: 1024 * 1024,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(dataDir, "journal.db"),
			MaxAge:  30 * 24 * time.Hour,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path yields the defaults. A leading byte order mark is tolerated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	if err := decode(f, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	utf8 := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	dec := yaml.NewDecoder(utf8)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Executor.Kind {
	case ExecutorStub:
	case ExecutorProcess:
		if c.Executor.Command == "" {
			return fmt.Errorf("executor.command is required for kind %q", ExecutorProcess)
		}
	default:
		return fmt.Errorf("unknown executor kind: %q", c.Executor.Kind)
	}

	if c.Executor.CallTimeout < 0 {
		return fmt.Errorf("executor.call_timeout cannot be negative")
	}

	for i, route := range c.Executor.Routes {
		if route.Pattern == "" {
			return fmt.Errorf("executor.routes[%d]: pattern is required", i)
		}
		if route.Command == "" {
			return fmt.Errorf("executor.routes[%d]: command is required", i)
		}
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	if c.Journal.MaxAge < 0 {
		return fmt.Errorf("journal.max_age cannot be negative")
	}

	if c.Validation.MaxParamsSize < 0 {
		return fmt.Errorf("validation.max_params_size cannot be negative")
	}

	return nil
}

// EnsureDirectories creates the parent directories of configured files.
func (c *Config) EnsureDirectories() error {
	if c.Journal.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.Journal.Path), 0700); err != nil {
			return err
		}
	}
	if c.Server.Socket != "" {
		if err := os.MkdirAll(filepath.Dir(c.Server.Socket), 0700); err != nil {
			return err
		}
	}
	return nil
}
