package config

import "time"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreS3       = "s3"
)

// Substrate providers.
const (
	SubstrateHCloud = "hcloud"
	SubstrateDocker = "docker"
)

// Config holds the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Substrate SubstrateConfig `yaml:"substrate"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// Timeouts is loaded from the environment only.
	Timeouts *Timeouts `yaml:"-"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// EventHistory is the number of provisioning events kept per cluster.
	EventHistory int `yaml:"event_history"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console; empty selects console on a terminal
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend     string   `yaml:"backend"`
	PostgresURL string   `yaml:"postgres_url"`
	S3          S3Config `yaml:"s3"`
}

// S3Config configures the s3 store backend.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// SubstrateConfig selects where instances run.
type SubstrateConfig struct {
	Provider string       `yaml:"provider"`
	HCloud   HCloudConfig `yaml:"hcloud"`
	Docker   DockerConfig `yaml:"docker"`
}

// HCloudConfig configures the Hetzner Cloud substrate.
type HCloudConfig struct {
	Token    string   `yaml:"token"`
	Location string   `yaml:"location"`
	SSHKeys  []string `yaml:"ssh_keys"`
}

// DockerConfig configures the local Docker substrate.
type DockerConfig struct {
	// Host overrides DOCKER_HOST.
	Host string `yaml:"host"`
	// Network is the Docker network instances join.
	Network string `yaml:"network"`
	// DefaultImage is used when a node group does not name an image.
	DefaultImage string `yaml:"default_image"`
}

// PluginsConfig configures the provisioning engines.
type PluginsConfig struct {
	Vanilla VanillaConfig `yaml:"vanilla"`
}

// VanillaConfig configures the built-in SSH engine.
type VanillaConfig struct {
	SSHUser        string `yaml:"ssh_user"`
	SSHPort        int    `yaml:"ssh_port"`
	SSHPrivateKey  string `yaml:"ssh_private_key"` // path to a PEM key
	ServiceCommand string `yaml:"service_command"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 30 * time.Second,
			EventHistory:    200,
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend: StoreMemory,
			S3:      S3Config{Region: "fsn1", Prefix: "stratus"},
		},
		Substrate: SubstrateConfig{
			Provider: SubstrateHCloud,
			HCloud:   HCloudConfig{Location: "fsn1"},
			Docker:   DockerConfig{Network: "bridge", DefaultImage: "debian:bookworm"},
		},
		Plugins: PluginsConfig{
			Vanilla: VanillaConfig{
				SSHUser:        "root",
				SSHPort:        22,
				ServiceCommand: "systemctl",
			},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}
