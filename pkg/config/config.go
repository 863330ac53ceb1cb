package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is read from the working directory when no config path is given
	DefaultFile = "pipeline-builder.toml"
	envPrefix   = "PIPELINE_BUILDER_"
)

// Config holds all configuration for the application
type Config struct {
	Port       int            `koanf:"port"`
	Analyzer   AnalyzerConfig `koanf:"analyzer"`
	Log        LogConfig      `koanf:"log"`
	Watch      bool           `koanf:"watch"`
	Verbosity  string         `koanf:"verbosity"`
	VerboseCnt int            `koanf:"verbose"`
	File       string         `koanf:"config"`
}

// AnalyzerConfig covers both sides of a submission: where the builder sends
// pipelines and how the analysis service listens for them
type AnalyzerConfig struct {
	URL     string        `koanf:"url"`
	Listen  string        `koanf:"listen"`
	Timeout time.Duration `koanf:"timeout"`
	Origins []string      `koanf:"origins"`
}

type LogConfig struct {
	JSON bool `koanf:"json"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port": 8080,
		"analyzer": map[string]interface{}{
			"url":     "http://localhost:8000/pipelines/parse",
			"listen":  ":8000",
			"timeout": "10s",
			"origins": []string{
				"http://localhost:5173",
				"http://localhost:5174",
				"http://localhost:3000",
				"http://127.0.0.1:5173",
			},
		},
		"log": map[string]interface{}{
			"json": false,
		},
		"watch":     false,
		"verbosity": "",
		"verbose":   0,
		"config":    DefaultFile,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
//
// Flag names use dashes for nesting: --analyzer-url sets analyzer.url.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional). A missing file is fine, a broken one is not.
	path := configPath(f)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	// 3. Environment Variables
	// Prefix: PIPELINE_BUILDER_ (e.g., PIPELINE_BUILDER_ANALYZER_URL=http://...)
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return flagKey(fl.Name), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command can work with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Analyzer.Timeout <= 0 {
		return fmt.Errorf("invalid analyzer timeout %s", c.Analyzer.Timeout)
	}
	return nil
}

// configPath resolves the config file before anything else is loaded
func configPath(f *pflag.FlagSet) string {
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Changed {
			return fl.Value.String()
		}
	}
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	return DefaultFile
}

func envValue(key, value string) (string, interface{}) {
	key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", ".")
	if key == "analyzer.origins" {
		return key, strings.Split(value, ",")
	}
	return key, value
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", ".")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
