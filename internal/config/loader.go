package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// Loader handles configuration loading and parsing
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses configuration from YAML bytes
func (l *Loader) Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := l.expandEnvVars(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal YAML into config
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match // Keep original if env var not set
	})
}

// validate checks configuration for errors
func (l *Loader) validate(cfg *Config) error {
	switch cfg.Backend.Kind {
	case "", BackendLocal:
		// Degraded convention; nothing further to check
	case BackendCluster:
		if len(cfg.Backend.Cluster.Addrs) == 0 {
			return fmt.Errorf("backend kind %q requires cluster.addrs", cfg.Backend.Kind)
		}
	case BackendServerless:
		if cfg.Backend.Serverless.URL == "" {
			return fmt.Errorf("backend kind %q requires serverless.url", cfg.Backend.Kind)
		}
	default:
		return fmt.Errorf("invalid backend kind: %s", cfg.Backend.Kind)
	}

	if cfg.Backend.Cluster.MaxRetries < 0 {
		return fmt.Errorf("cluster.max_retries must be >= 0")
	}
	if cfg.Backend.Cluster.ScanBatchSize <= 0 {
		return fmt.Errorf("cluster.scan_batch_size must be > 0")
	}
	if cfg.Local.MaxEntries <= 0 {
		return fmt.Errorf("local.max_entries must be > 0")
	}
	if cfg.Admin.Address == "" {
		return fmt.Errorf("admin.address is required")
	}

	return nil
}
