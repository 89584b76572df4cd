package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

// Environment variables that override the file.
const (
	EnvLLMBaseURL = "POSTMETA_LLM_BASE_URL"
	EnvLLMModel   = "POSTMETA_LLM_MODEL"
	EnvLLMAPIKey  = "POSTMETA_LLM_API_KEY"
	EnvLogLevel   = "POSTMETA_LOG_LEVEL"
)

// Config is the top-level postmeta configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text, json

	LLM        LLMConfig        `yaml:"llm"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`

	MaxRetries     int           `yaml:"max_retries"` // -1 disables
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
}

// PipelineConfig controls the enrichment run.
type PipelineConfig struct {
	Workers         int    `yaml:"workers"`
	OnExtractError  string `yaml:"on_extract_error"` // abort, skip
	ExtractAttempts int    `yaml:"extract_attempts"`
	Strict          bool   `yaml:"strict"`
	StripMarkup     bool   `yaml:"strip_markup"`
}

// CheckpointConfig enables the SQLite checkpoint store when Path is set.
type CheckpointConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables a Prometheus textfile when Textfile is set.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		LLM: LLMConfig{
			BaseURL:        "https://api.groq.com/openai/v1/chat/completions",
			Model:          "llama-3.3-70b-versatile",
			Timeout:        60 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:         1,
			OnExtractError:  "abort",
			ExtractAttempts: 1,
		},
	}
}

// Load reads configuration from a YAML file on top of Default, then applies
// environment overrides. ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from POSTMETA_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLLMBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvLLMModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q (valid: text, json)", c.LogFormat))
	}

	if c.LLM.BaseURL == "" {
		problems = append(problems, "llm.base_url is required")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model is required")
	}
	if c.LLM.Timeout < 0 {
		problems = append(problems, "llm.timeout must not be negative")
	}
	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		problems = append(problems, "llm.temperature must be within [0, 2]")
	}

	if c.Pipeline.Workers < 1 {
		problems = append(problems, "pipeline.workers must be at least 1")
	}
	if c.Pipeline.ExtractAttempts < 1 {
		problems = append(problems, "pipeline.extract_attempts must be at least 1")
	}
	switch c.Pipeline.OnExtractError {
	case "", "abort", "skip":
	default:
		problems = append(problems, fmt.Sprintf("unknown pipeline.on_extract_error %q (valid: abort, skip)", c.Pipeline.OnExtractError))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
