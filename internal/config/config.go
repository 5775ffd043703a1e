// Package config loads Caretaker configuration from ~/.caretaker/config.yaml
// with environment variable overrides (prefix CARETAKER_).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/caretaker-ai/caretaker/internal/logging"
)

// Config holds all application configuration for the Caretaker assistant.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Medical   MedicalConfig   `mapstructure:"medical" yaml:"medical"`
	Voice     VoiceConfig     `mapstructure:"voice" yaml:"voice"`
	Logging   logging.Config  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8180".
	Addr string `mapstructure:"addr" yaml:"addr"`
	// AllowedOrigins for CORS. "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// SSEPollInterval is how often the stream handler polls the chunk
	// queue before emitting a keepalive.
	SSEPollInterval time.Duration `mapstructure:"sse_poll_interval" yaml:"sse_poll_interval"`
}

// LLMConfig selects between the cloud chat model and a self-hosted model.
type LLMConfig struct {
	// UseLocal routes all completions to the self-hosted provider.
	UseLocal bool `mapstructure:"use_local" yaml:"use_local"`

	// Cloud provider (OpenAI-compatible chat completions).
	CloudAPIKey   string `mapstructure:"cloud_api_key" yaml:"cloud_api_key,omitempty"`
	CloudEndpoint string `mapstructure:"cloud_endpoint" yaml:"cloud_endpoint"`
	CloudModel    string `mapstructure:"cloud_model" yaml:"cloud_model"`

	// Self-hosted provider (Ollama).
	LocalEndpoint string `mapstructure:"local_endpoint" yaml:"local_endpoint"`
	LocalModel    string `mapstructure:"local_model" yaml:"local_model"`

	// Temperature default for completions.
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// Timeout for a single completion call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EmbeddingConfig configures the sentence embedding model.
type EmbeddingConfig struct {
	// Endpoint of the embedding server (Ollama-compatible).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// Model is the embedding model name.
	Model string `mapstructure:"model" yaml:"model"`
	// Timeout for a single embedding call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SearchConfig configures the programmable web search adapter.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	EngineID   string `mapstructure:"engine_id" yaml:"engine_id,omitempty"`
	MaxResults int    `mapstructure:"max_results" yaml:"max_results"`
}

// MedicalConfig configures the external medical reasoning endpoint.
type MedicalConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// VoiceConfig configures the realtime voice WebSocket bridge.
type VoiceConfig struct {
	// Endpoint is the realtime WebSocket URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// Subprotocol requested on dial.
	Subprotocol string `mapstructure:"subprotocol" yaml:"subprotocol"`
	// ResponseBudget caps how long the bridge drains deltas per response.
	ResponseBudget time.Duration `mapstructure:"response_budget" yaml:"response_budget"`
	// SessionPause is the short pause after session initialization before
	// the utterance is sent.
	SessionPause time.Duration `mapstructure:"session_pause" yaml:"session_pause"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8180",
			AllowedOrigins:  []string{"*"},
			SSEPollInterval: 500 * time.Millisecond,
		},
		LLM: LLMConfig{
			UseLocal:      false,
			CloudEndpoint: "https://api.openai.com/v1",
			CloudModel:    "gpt-4o-mini",
			LocalEndpoint: "http://127.0.0.1:11434",
			LocalModel:    "llama3",
			Temperature:   0.2,
			Timeout:       2 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Endpoint: "http://127.0.0.1:11434",
			Model:    "nomic-embed-text",
			Timeout:  30 * time.Second,
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		Medical: MedicalConfig{
			Endpoint: "http://127.0.0.1:8765/reason",
			Timeout:  20 * time.Second,
		},
		Voice: VoiceConfig{
			Endpoint:       "ws://127.0.0.1:8971/realtime",
			Subprotocol:    "realtime",
			ResponseBudget: 10 * time.Second,
			SessionPause:   200 * time.Millisecond,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from ~/.caretaker/config.yaml, creating it with
// defaults if missing, and merges environment variable overrides.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".caretaker", "config.yaml"))
}

// LoadFromPath reads configuration from a specific file path. If the file
// doesn't exist, it is created with default values first.
func LoadFromPath(path string) (*Config, error) {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: CARETAKER_LLM_CLOUD_API_KEY
	v.SetEnvPrefix("CARETAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in zero values with defaults so that a sparse config
// file still yields a runnable configuration.
func (c *Config) applyDefaults() {
	d := Default()

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = d.Server.AllowedOrigins
	}
	if c.Server.SSEPollInterval == 0 {
		c.Server.SSEPollInterval = d.Server.SSEPollInterval
	}
	if c.LLM.CloudEndpoint == "" {
		c.LLM.CloudEndpoint = d.LLM.CloudEndpoint
	}
	if c.LLM.CloudModel == "" {
		c.LLM.CloudModel = d.LLM.CloudModel
	}
	if c.LLM.LocalEndpoint == "" {
		c.LLM.LocalEndpoint = d.LLM.LocalEndpoint
	}
	if c.LLM.LocalModel == "" {
		c.LLM.LocalModel = d.LLM.LocalModel
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.Embedding.Endpoint == "" {
		c.Embedding.Endpoint = d.Embedding.Endpoint
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = d.Embedding.Model
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = d.Embedding.Timeout
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = d.Search.MaxResults
	}
	if c.Medical.Endpoint == "" {
		c.Medical.Endpoint = d.Medical.Endpoint
	}
	if c.Medical.Timeout == 0 {
		c.Medical.Timeout = d.Medical.Timeout
	}
	if c.Voice.Endpoint == "" {
		c.Voice.Endpoint = d.Voice.Endpoint
	}
	if c.Voice.Subprotocol == "" {
		c.Voice.Subprotocol = d.Voice.Subprotocol
	}
	if c.Voice.ResponseBudget == 0 {
		c.Voice.ResponseBudget = d.Voice.ResponseBudget
	}
	if c.Voice.SessionPause == 0 {
		c.Voice.SessionPause = d.Voice.SessionPause
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// writeConfigFile writes cfg to path as YAML with a short header comment.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := "# Caretaker configuration.\n# Environment variables with the CARETAKER_ prefix override these values.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}
