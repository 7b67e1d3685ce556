package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Timeouts = LoadTimeouts()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("STRATUS_ADDR", &c.Server.Address)
	str("STRATUS_LOG_LEVEL", &c.Log.Level)
	str("STRATUS_LOG_FORMAT", &c.Log.Format)

	str("STRATUS_STORE", &c.Store.Backend)
	str("STRATUS_POSTGRES_URL", &c.Store.PostgresURL)
	str("STRATUS_S3_ENDPOINT", &c.Store.S3.Endpoint)
	str("STRATUS_S3_REGION", &c.Store.S3.Region)
	str("STRATUS_S3_BUCKET", &c.Store.S3.Bucket)
	str("STRATUS_S3_ACCESS_KEY", &c.Store.S3.AccessKey)
	str("STRATUS_S3_SECRET_KEY", &c.Store.S3.SecretKey)

	str("STRATUS_SUBSTRATE", &c.Substrate.Provider)
	str("HCLOUD_TOKEN", &c.Substrate.HCloud.Token)
	str("STRATUS_DOCKER_NETWORK", &c.Substrate.Docker.Network)

	str("STRATUS_SSH_USER", &c.Plugins.Vanilla.SSHUser)
	str("STRATUS_SSH_KEY", &c.Plugins.Vanilla.SSHPrivateKey)

	if v, ok := lookup("STRATUS_METRICS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
}
