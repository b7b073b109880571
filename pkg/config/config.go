// Package config loads the console core configuration from YAML.
// ${VAR} references in the file are expanded from the environment before
// parsing, so credentials like the provider API key stay out of the file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete console configuration.
type Config struct {
	Server Server `yaml:"server"`
	Auth   Auth   `yaml:"auth"`
}

// Server configures the remote API server connection.
type Server struct {
	// URL is the API server root, e.g. "https://api.example.com".
	URL string `yaml:"url"`

	// TimeoutSeconds bounds each request; 0 means the client default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout, or zero for the default.
func (s Server) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Auth configures the identity provider.
type Auth struct {
	// APIKey is the identity provider's web API key.
	APIKey string `yaml:"api_key"`

	// IdentityURL overrides the provider's account endpoint (tests,
	// self-hosted emulators).
	IdentityURL string `yaml:"identity_url"`

	// TokenURL overrides the provider's token-refresh endpoint.
	TokenURL string `yaml:"token_url"`
}

// Load reads, expands and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references and unmarshals the YAML document.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields no component can default.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if c.Server.TimeoutSeconds < 0 {
		return fmt.Errorf("server.timeout_seconds must not be negative")
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
