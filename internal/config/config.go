// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package config loads erst settings from an optional YAML file and ERST_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/stellar/go/network"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRPCURL  = "https://soroban-testnet.stellar.org"
	DefaultTimeout = 30 * time.Second

	futurenetPassphrase = "Test SDF Future Network ; October 2022"
)

type Config struct {
	RPCURL            string        `yaml:"rpc_url"`
	NetworkPassphrase string        `yaml:"network_passphrase"`
	Timeout           time.Duration `yaml:"timeout"`
	CachePath         string        `yaml:"cache_path"`
	OTLPEndpoint      string        `yaml:"otlp_endpoint"`
	// OTLPInsecure disables TLS for a host:port collector endpoint.
	OTLPInsecure bool `yaml:"otlp_insecure"`
	// RPCVersion is a go-version constraint the node must satisfy; empty skips the check.
	RPCVersion string `yaml:"rpc_version"`
	Verbose    bool   `yaml:"verbose"`
}

func Default() Config {
	return Config{
		RPCURL:            DefaultRPCURL,
		NetworkPassphrase: network.TestNetworkPassphrase,
		Timeout:           DefaultTimeout,
		CachePath:         defaultCachePath(),
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "erst", "simulations.db")
}

// Load starts from Default, applies path when non-empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ERST_RPC_URL"); ok {
		c.RPCURL = v
	}
	if v, ok := lookup("ERST_NETWORK_PASSPHRASE"); ok {
		c.NetworkPassphrase = v
	}
	if v, ok := lookup("ERST_CACHE_PATH"); ok {
		c.CachePath = v
	}
	if v, ok := lookup("ERST_OTLP_ENDPOINT"); ok {
		c.OTLPEndpoint = v
	}
	if v, ok := lookup("ERST_OTLP_INSECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ERST_OTLP_INSECURE: %w", err)
		}
		c.OTLPInsecure = b
	}
	if v, ok := lookup("ERST_RPC_VERSION"); ok {
		c.RPCVersion = v
	}
	if v, ok := lookup("ERST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ERST_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Network maps a short network name to its passphrase.
func Network(name string) (string, bool) {
	switch name {
	case "testnet":
		return network.TestNetworkPassphrase, true
	case "mainnet", "public":
		return network.PublicNetworkPassphrase, true
	case "futurenet":
		return futurenetPassphrase, true
	default:
		return "", false
	}
}
