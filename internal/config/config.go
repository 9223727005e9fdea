// Package config loads the daemon's TOML configuration. A Config is read
// once at startup and never changes afterwards.
package config

import (
	"os"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	"github.com/mitchellh/hashstructure/v2"
)

const DefaultPath = "config/config.toml"

var (
	ErrInvalidConfig = errors.NewPlain("invalid configuration")
)

type ApiToken struct {
	Token       string `toml:"token" hash:"ignore"`
	Description string `toml:"description"`
}

type Config struct {
	ListenAddr      string     `toml:"listen_addr"`
	ShardCount      int        `toml:"shard_count"`
	RingSize        int        `toml:"ring_size"`
	SampleIntervalS uint64     `toml:"sample_interval_s"`
	EthernetName    string     `toml:"ethernet_name"`
	ApiTokens       []ApiToken `toml:"api_tokens"`

	LogLevel    string `toml:"log_level"`
	LogDir      string `toml:"log_dir"`
	ArchivePath string `toml:"archive_path"`
}

// Load reads and validates the TOML file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "failed to read config", "path", path)
	}
	return Parse(string(raw))
}

// Parse decodes and validates a TOML document.
func Parse(data string) (*Config, error) {
	cfg := &Config{LogLevel: "info"}
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.WithDetails(ErrInvalidConfig, "unknown_keys", strings.Join(keys, ","))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.ListenAddr) == "":
		return errors.WithMessage(ErrInvalidConfig, "listen_addr must be set")
	case c.ShardCount < 1:
		return errors.WithDetails(errors.WithMessage(ErrInvalidConfig, "shard_count must be at least 1"), "shard_count", c.ShardCount)
	case c.RingSize < 1:
		return errors.WithDetails(errors.WithMessage(ErrInvalidConfig, "ring_size must be at least 1"), "ring_size", c.RingSize)
	case c.SampleIntervalS < 1:
		return errors.WithMessage(ErrInvalidConfig, "sample_interval_s must be at least 1")
	case strings.TrimSpace(c.EthernetName) == "":
		return errors.WithMessage(ErrInvalidConfig, "ethernet_name must be set")
	case len(c.ApiTokens) == 0:
		return errors.WithMessage(ErrInvalidConfig, "at least one api token is required")
	}
	for i, t := range c.ApiTokens {
		if strings.TrimSpace(t.Token) == "" {
			return errors.WithDetails(errors.WithMessage(ErrInvalidConfig, "api token must not be empty"), "index", i)
		}
	}
	return nil
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalS) * time.Second
}

// TokenSet returns the accepted bearer tokens.
func (c *Config) TokenSet() map[string]struct{} {
	tokens := make(map[string]struct{}, len(c.ApiTokens))
	for _, t := range c.ApiTokens {
		tokens[t.Token] = struct{}{}
	}
	return tokens
}

// Fingerprint identifies the effective configuration in logs. Token values
// do not contribute to it.
func (c *Config) Fingerprint() (uint64, error) {
	return hashstructure.Hash(c, hashstructure.FormatV2, nil)
}
