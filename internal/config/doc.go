// Package config defines the stratus server configuration.
//
// Configuration is read from an optional YAML file, then overridden by
// environment variables (STRATUS_*, HCLOUD_TOKEN and the substrate
// timeout variables read by [LoadTimeouts]), then validated.
package config
