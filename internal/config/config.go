// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration shared by the BFF server and
// the provisioning CLI.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Identity      IdentityConfig      `yaml:"identity"`
	Commerce      CommerceConfig      `yaml:"commerce"`
	Schema        SchemaConfig        `yaml:"schema"`
	Access        AccessConfig        `yaml:"access"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Provision     ProvisionConfig     `yaml:"provision"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// IdentityConfig describes JWT and identity provider settings.
type IdentityConfig struct {
	Issuer       string        `yaml:"issuer"`
	Audience     string        `yaml:"audience"`
	JWKSURL      string        `yaml:"jwks_url"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl"`
	Algorithms   []string      `yaml:"algorithms"`
}

// CommerceConfig describes the remote commerce platform API.
type CommerceConfig struct {
	BaseURL            string        `yaml:"base_url"`
	SpecFile           string        `yaml:"spec_file"`
	Timeout            time.Duration `yaml:"timeout"`
	AdminClientID      string        `yaml:"admin_client_id"`
	StorefrontClientID string        `yaml:"storefront_client_id"`
}

// SchemaConfig drives column derivation for resource list views.
// Overrides maps a resource name to an ordered list of visible column IDs;
// resources without an entry use default visibility.
type SchemaConfig struct {
	SortOrder         []string            `yaml:"sort_order"`
	Overrides         map[string][]string `yaml:"overrides"`
	ReadOnlyResources []string            `yaml:"read_only_resources"`
}

// ReadOnly reports whether the given resource is configured read-only.
func (s SchemaConfig) ReadOnly(resource string) bool {
	for _, r := range s.ReadOnlyResources {
		if strings.EqualFold(r, resource) {
			return true
		}
	}
	return false
}

// AccessConfig describes authorization settings.
type AccessConfig struct {
	PolicyFile string `yaml:"policy_file"`
}

// NotificationsConfig describes the one-shot notification registry.
type NotificationsConfig struct {
	ActiveTTL time.Duration `yaml:"active_ttl"`
}

// ProvisionConfig describes the provisioning CLI run.
type ProvisionConfig struct {
	TemplatesDir  string `yaml:"templates_dir"`
	AdminDir      string `yaml:"admin_dir"`
	StorefrontDir string `yaml:"storefront_dir"`
	FuncAppName   string `yaml:"func_app_name"`
	Region        string `yaml:"region"`
	NodeVersion   string `yaml:"node_version"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Identity: IdentityConfig{
			JWKSCacheTTL: 1 * time.Hour,
			Algorithms:   []string{"RS256"},
		},
		Commerce: CommerceConfig{
			Timeout: 10 * time.Second,
		},
		Schema: SchemaConfig{
			SortOrder: []string{"ID", "Name", "Description", "Active"},
		},
		Notifications: NotificationsConfig{
			ActiveTTL: 5 * time.Second,
		},
		Provision: ProvisionConfig{
			TemplatesDir: "templates",
			FuncAppName:  "integrations",
			NodeVersion:  "~20",
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// LoadTool reads a YAML config file for command-line tools. It applies
// defaults and env overrides but skips the server-side required-field
// validation; the provisioning CLI only needs its own section.
func LoadTool(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Commerce.BaseURL == "" {
		errs = append(errs, "commerce.base_url is required")
	}
	if c.Commerce.SpecFile == "" {
		errs = append(errs, "commerce.spec_file is required")
	}
	if c.Identity.Issuer == "" {
		errs = append(errs, "identity.issuer is required")
	}
	if c.Identity.JWKSURL == "" {
		errs = append(errs, "identity.jwks_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads SHOPFRONT_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHOPFRONT_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SHOPFRONT_COMMERCE_BASE_URL"); v != "" {
		cfg.Commerce.BaseURL = v
	}
	if v := os.Getenv("SHOPFRONT_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("SHOPFRONT_IDENTITY_JWKS_URL"); v != "" {
		cfg.Identity.JWKSURL = v
	}
	if v := os.Getenv("SHOPFRONT_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
