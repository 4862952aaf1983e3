// Package config loads the static node configuration for the
// transaction pool and DMC dispatcher from a TOML file, in the idiom
// nhbchain's own config.Load uses for its node configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full set of knobs a txpoold process needs at startup.
type Config struct {
	Pool      PoolConfig      `toml:"Pool"`
	Dispatch  DispatchConfig  `toml:"Dispatch"`
	Log       LogConfig       `toml:"Log"`
	RPC       RPCConfig       `toml:"RPC"`
}

// PoolConfig mirrors txpool.Config's tunables. MaxRetryNotify has no
// txpool.Config counterpart and is not passed to the pool.
type PoolConfig struct {
	Limit              int    `toml:"Limit"`
	ExpirationMS       uint64 `toml:"ExpirationMS"`
	CleanupIntervalSec int    `toml:"CleanupIntervalSec"`
	MaxRetryNotify     int    `toml:"MaxRetryNotify"`
}

// DispatchConfig mirrors dmc.Scheduler's tunables.
type DispatchConfig struct {
	ShardConcurrency int `toml:"ShardConcurrency"`
}

// LogConfig selects the go-ethereum log verbosity and format.
type LogConfig struct {
	Level  string `toml:"Level"`
	Format string `toml:"Format"`
}

// RPCConfig holds a local listen address. No txpoold command starts a
// server or reads it.
type RPCConfig struct {
	ListenAddress string `toml:"ListenAddress"`
}

// CleanupInterval renders CleanupIntervalSec as a time.Duration.
func (p PoolConfig) CleanupInterval() time.Duration {
	return time.Duration(p.CleanupIntervalSec) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			Limit:              1_000_000,
			ExpirationMS:       600_000,
			CleanupIntervalSec: 10,
			MaxRetryNotify:     3,
		},
		Dispatch: DispatchConfig{
			ShardConcurrency: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "terminal",
		},
		RPC: RPCConfig{
			ListenAddress: ":8645",
		},
	}
}

// Load reads cfg from path, or writes and returns a default
// configuration if path does not yet exist, matching the
// create-default-on-first-run behavior nhbchain's config.Load uses.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
