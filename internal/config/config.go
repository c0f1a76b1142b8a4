// ABOUTME: Configuration loading and parsing for bi-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bi-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Name     string `yaml:"name"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authorization configuration
type AuthConfig struct {
	// StateSecret signs the short-lived OAuth state tokens
	StateSecret string `yaml:"state_secret"`
}

// AdminConfig holds administrative API configuration
type AdminConfig struct {
	// SecretHash is the bcrypt hash of the admin secret, produced by
	// `bi-gateway secret`. Empty disables the privileged endpoints.
	SecretHash string `yaml:"secret_hash"`
}

// OAuthConfig holds the authorization-bridge timing configuration
type OAuthConfig struct {
	RequestTTL time.Duration `yaml:"-"`
	CodeTTL    time.Duration `yaml:"-"`
	TokenTTL   time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	RequestTTLRaw string `yaml:"request_ttl"`
	CodeTTLRaw    string `yaml:"code_ttl"`
	TokenTTLRaw   string `yaml:"token_ttl"`
}

// ToolsConfig holds the collaborator settings for the analysis tools
type ToolsConfig struct {
	// CompletionURL is the OpenAI-compatible chat completions endpoint
	CompletionURL string `yaml:"completion_url"`
	CompletionKey string `yaml:"completion_key"`
	Model         string `yaml:"model"`
	// SearchURL is the optional market-data search endpoint
	SearchURL string `yaml:"search_url"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.StateSecret == "" {
		return fmt.Errorf("auth.state_secret is required")
	}
	if len(c.Auth.StateSecret) < 32 {
		return fmt.Errorf("auth.state_secret must be at least 32 characters")
	}

	if c.Tools.CompletionURL == "" {
		return fmt.Errorf("tools.completion_url is required")
	}

	switch c.Logging.Format {
	case "", "text", "json", "color":
		// valid
	default:
		return fmt.Errorf("logging.format must be text, json, or color, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.OAuth.RequestTTLRaw != "" {
		cfg.OAuth.RequestTTL, err = time.ParseDuration(cfg.OAuth.RequestTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing oauth.request_ttl %q: %w", cfg.OAuth.RequestTTLRaw, err)
		}
	}

	if cfg.OAuth.CodeTTLRaw != "" {
		cfg.OAuth.CodeTTL, err = time.ParseDuration(cfg.OAuth.CodeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing oauth.code_ttl %q: %w", cfg.OAuth.CodeTTLRaw, err)
		}
	}

	if cfg.OAuth.TokenTTLRaw != "" {
		cfg.OAuth.TokenTTL, err = time.ParseDuration(cfg.OAuth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing oauth.token_ttl %q: %w", cfg.OAuth.TokenTTLRaw, err)
		}
	}

	if cfg.Tools.TimeoutRaw != "" {
		cfg.Tools.Timeout, err = time.ParseDuration(cfg.Tools.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing tools.timeout %q: %w", cfg.Tools.TimeoutRaw, err)
		}
	}

	return nil
}
