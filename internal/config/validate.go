package config

import (
	"fmt"
	"slices"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v, got %q", validLogLevels, c.Log.Level)
	}
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	if err := c.validateStore(); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}
	if err := c.validateSubstrate(); err != nil {
		return fmt.Errorf("substrate validation failed: %w", err)
	}

	if c.Plugins.Vanilla.SSHPort <= 0 || c.Plugins.Vanilla.SSHPort > 65535 {
		return fmt.Errorf("plugins.vanilla.ssh_port %d is out of range", c.Plugins.Vanilla.SSHPort)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres_url is required for the postgres backend")
		}
	case StoreS3:
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateSubstrate() error {
	switch c.Substrate.Provider {
	case SubstrateHCloud:
		if c.Substrate.HCloud.Token == "" {
			return fmt.Errorf("hcloud token is required (set HCLOUD_TOKEN)")
		}
	case SubstrateDocker:
	default:
		return fmt.Errorf("unknown provider %q", c.Substrate.Provider)
	}
	return nil
}
