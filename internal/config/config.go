// Package config loads the plugin settings from a YAML file, with overrides
// from the environment.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/source/httpsrc"
	"github.com/lanikai/alohasrc/internal/source/wssrc"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "ALOHASRC_CONFIG"

type Config struct {
	// Default number of bytes requested per buffer.
	Blocksize int `yaml:"blocksize" env:"ALOHASRC_BLOCKSIZE" validate:"min=1,max=16777216"`

	// Log level directives, e.g. "info,httpsrc=debug".
	LogLevel string `yaml:"log_level" env:"ALOHASRC_LOG_LEVEL"`

	// Per-backend overrides, keyed by factory name.
	Sources map[string]SourceConfig `yaml:"sources" validate:"dive"`

	HTTP HTTPConfig `yaml:"http"`
	WS   WSConfig   `yaml:"ws"`
}

type SourceConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Rank    *int   `yaml:"rank" validate:"omitempty,min=0"`
	Schemes string `yaml:"schemes" validate:"omitempty,scheme_list"`
}

// IsEnabled reports whether the backend should be registered. Backends are
// enabled unless switched off.
func (sc SourceConfig) IsEnabled() bool {
	return sc.Enabled == nil || *sc.Enabled
}

type HTTPConfig struct {
	UserAgent   string        `yaml:"user_agent" env:"ALOHASRC_HTTP_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"ALOHASRC_HTTP_TIMEOUT" validate:"min=0"`
	BlockSize   int           `yaml:"block_size" validate:"min=512"`
	CacheBlocks int           `yaml:"cache_blocks" validate:"min=1"`
}

func (hc HTTPConfig) Options() httpsrc.Options {
	return httpsrc.Options{
		UserAgent:   hc.UserAgent,
		Timeout:     hc.Timeout,
		BlockSize:   hc.BlockSize,
		CacheBlocks: hc.CacheBlocks,
	}
}

type WSConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"min=0"`
	QueueDepth       int           `yaml:"queue_depth" validate:"min=1"`
}

func (wc WSConfig) Options() wssrc.Options {
	return wssrc.Options{
		HandshakeTimeout: wc.HandshakeTimeout,
		QueueDepth:       wc.QueueDepth,
	}
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	httpOpts := httpsrc.DefaultOptions()
	wsOpts := wssrc.DefaultOptions()
	return &Config{
		Blocksize: element.DefaultBlocksize,
		Sources:   map[string]SourceConfig{},
		HTTP: HTTPConfig{
			UserAgent:   httpOpts.UserAgent,
			Timeout:     httpOpts.Timeout,
			BlockSize:   httpOpts.BlockSize,
			CacheBlocks: httpOpts.CacheBlocks,
		},
		WS: WSConfig{
			HandshakeTimeout: wsOpts.HandshakeTimeout,
			QueueDepth:       wsOpts.QueueDepth,
		},
	}
}

// Load reads the config file at path on top of the defaults, then applies the
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, &ParseError{Path: path, Line: extractLine(err), Err: err}
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]SourceConfig{}
	}

	return finish(cfg)
}

// LoadFromEnv loads the file named by ALOHASRC_CONFIG, or the defaults if it
// is unset.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv overrides target's fields from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

func extractLine(err error) int {
	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}
	line, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return line
}
