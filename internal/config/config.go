package config

import "time"

// Backend kinds accepted in the configuration.
const (
	BackendCluster    = "cluster"    // clustered key-value engine behind a retrying client
	BackendServerless = "serverless" // serverless HTTP key-value service
	BackendLocal      = "local"      // in-process store only, primary scan unavailable
)

// Config is the top-level service configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Local   LocalConfig   `yaml:"local"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig names the active primary backend and carries the
// per-kind client settings. Kind is passed explicitly into the backend
// factory; an empty kind selects the degraded local convention.
type BackendConfig struct {
	Kind       string           `yaml:"kind"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Serverless ServerlessConfig `yaml:"serverless"`
}

// ClusterConfig configures the clustered key-value client.
type ClusterConfig struct {
	Addrs          []string      `yaml:"addrs"`
	Password       string        `yaml:"password"`
	MaxRetries     int           `yaml:"max_retries"`     // retry wrapper attempts beyond the first call
	InitialBackoff time.Duration `yaml:"initial_backoff"` // first retry delay
	MaxBackoff     time.Duration `yaml:"max_backoff"`     // backoff ceiling
	ScanBatchSize  int64         `yaml:"scan_batch_size"` // keys per SCAN page
}

// ServerlessConfig configures the HTTP key-value client.
type ServerlessConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// LocalConfig configures the in-process fallback store.
type LocalConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// AdminConfig configures the admin HTTP listener.
type AdminConfig struct {
	Address string `yaml:"address"` // e.g., ":8097"
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Cluster: ClusterConfig{
				MaxRetries:     3,
				InitialBackoff: 100 * time.Millisecond,
				MaxBackoff:     2 * time.Second,
				ScanBatchSize:  100,
			},
			Serverless: ServerlessConfig{
				Timeout: 5 * time.Second,
			},
		},
		Local: LocalConfig{
			MaxEntries: 1000,
			TTL:        30 * time.Minute,
		},
		Admin: AdminConfig{
			Address: ":8097",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
