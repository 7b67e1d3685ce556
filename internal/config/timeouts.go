package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds substrate timeout and retry values.
// The orchestrator itself enforces none; every substrate call carries these.
type Timeouts struct {
	ServerCreate      time.Duration // create call until the server is running
	ServerIP          time.Duration // wait for a public address
	Delete            time.Duration // delete call including its action
	ImageWait         time.Duration // image lookup before create
	SSHConnect        time.Duration // instance SSH port to open
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// LoadTimeouts reads the timeouts from the environment. Unset or
// unparsable values fall back to the defaults below.
//
//   - HCLOUD_TIMEOUT_SERVER_CREATE (default: 10m)
//   - HCLOUD_TIMEOUT_SERVER_IP (default: 60s)
//   - HCLOUD_TIMEOUT_DELETE (default: 5m)
//   - HCLOUD_TIMEOUT_IMAGE_WAIT (default: 5m)
//   - STRATUS_TIMEOUT_SSH_CONNECT (default: 5m)
//   - HCLOUD_RETRY_MAX_ATTEMPTS (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      parseDuration("HCLOUD_TIMEOUT_SERVER_CREATE", 10*time.Minute),
		ServerIP:          parseDuration("HCLOUD_TIMEOUT_SERVER_IP", 60*time.Second),
		Delete:            parseDuration("HCLOUD_TIMEOUT_DELETE", 5*time.Minute),
		ImageWait:         parseDuration("HCLOUD_TIMEOUT_IMAGE_WAIT", 5*time.Minute),
		SSHConnect:        parseDuration("STRATUS_TIMEOUT_SSH_CONNECT", 5*time.Minute),
		RetryMaxAttempts:  parseInt("HCLOUD_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("HCLOUD_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

func parseDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func parseInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}
