// Package config loads the settings snapshot that every enhancement reads:
// provider selection, credentials, generation parameters and custom prompts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/prompt"
)

// RateLimit configures the shared enhancement queue.
type RateLimit struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
}

// Config holds all application configuration.
type Config struct {
	Port     int    `yaml:"port" json:"port"`
	APIKey   string `yaml:"api_key" json:"-"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	// HTTPRateLimit is the per-client request allowance per minute on the
	// HTTP surface, independent of the provider queue.
	HTTPRateLimit int `yaml:"http_rate_limit" json:"http_rate_limit"`

	Provider          adapter.ProviderKind `yaml:"provider" json:"provider"`
	Model             string               `yaml:"model" json:"model"`
	Credential        string               `yaml:"credential" json:"-"`
	Endpoint          string               `yaml:"endpoint" json:"endpoint,omitempty"`
	SystemInstruction string               `yaml:"system_instruction" json:"system_instruction"`
	Temperature       float64              `yaml:"temperature" json:"temperature"`
	MaxTokens         int                  `yaml:"max_tokens" json:"max_tokens"`
	CustomPrompts     []prompt.Template    `yaml:"custom_prompts" json:"custom_prompts"`

	RateLimit      RateLimit     `yaml:"rate_limit" json:"rate_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

func defaults() Config {
	return Config{
		Port:              8090,
		LogLevel:          "info",
		HTTPRateLimit:     60,
		Provider:          adapter.OpenAI,
		SystemInstruction: prompt.DefaultSystemInstruction,
		Temperature:       0.7,
		MaxTokens:         2048,
		RateLimit: RateLimit{
			MaxRequests: 20,
			Window:      time.Minute,
		},
		RequestTimeout: 30 * time.Second,
	}
}

// Default returns the built-in configuration without reading the environment.
func Default() Config {
	cfg := defaults()
	cfg.Model = cfg.Provider.DefaultModel()
	return cfg
}

// Load loads configuration from a YAML file (if path is non-empty),
// then applies environment variable overrides. An empty path returns defaults + env overrides.
// Unknown providers are rejected here rather than at dispatch time.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SCRAMBLE_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCRAMBLE_PORT %q: %w", v, err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("SCRAMBLE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("SCRAMBLE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCRAMBLE_PROVIDER"); v != "" {
		cfg.Provider = adapter.ProviderKind(v)
	}
	if v := os.Getenv("SCRAMBLE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SCRAMBLE_CREDENTIAL"); v != "" {
		cfg.Credential = v
	}
	if v := os.Getenv("SCRAMBLE_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("SCRAMBLE_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: invalid SCRAMBLE_TEMPERATURE %q: %w", v, err)
		}
		cfg.Temperature = f
	}
	if v := os.Getenv("SCRAMBLE_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCRAMBLE_MAX_TOKENS %q: %w", v, err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("SCRAMBLE_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCRAMBLE_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}

func (c *Config) normalize() error {
	kind, err := adapter.ParseProviderKind(string(c.Provider))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Provider = kind
	if c.Model == "" {
		c.Model = kind.DefaultModel()
	}
	if strings.TrimSpace(c.SystemInstruction) == "" {
		c.SystemInstruction = prompt.DefaultSystemInstruction
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config: temperature %v out of range [0, 2]", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("config: rate_limit needs positive max_requests and window")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive")
	}

	seen := make(map[string]bool, len(c.CustomPrompts))
	for i, p := range c.CustomPrompts {
		if p.ID == "" {
			p.ID = prompt.IDFromTitle(p.Title)
			c.CustomPrompts[i] = p
		}
		if p.ID == "" || p.Body == "" {
			return fmt.Errorf("config: custom_prompts[%d] needs a title and a prompt", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("config: duplicate custom prompt id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Request builds the per-call generation request for fullPrompt.
func (c Config) Request(fullPrompt string) adapter.GenerationRequest {
	return adapter.GenerationRequest{
		FullPrompt:        fullPrompt,
		SystemInstruction: c.SystemInstruction,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Provider:          c.Provider,
		Model:             c.Model,
		Endpoint:          c.Endpoint,
		APIKey:            c.Credential,
	}
}

// Redacted is the snapshot exposed over HTTP. Secrets are replaced by flags
// saying whether they are set.
type Redacted struct {
	Config
	CredentialSet bool `json:"credential_set"`
	AuthRequired  bool `json:"auth_required"`
}

func (c Config) Redacted() Redacted {
	return Redacted{
		Config:        c,
		CredentialSet: c.Credential != "",
		AuthRequired:  c.APIKey != "",
	}
}
