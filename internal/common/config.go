package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
// Loaded once at startup and injected into components as an immutable
// struct; no component reads ambient global state.
type Config struct {
	Environment    string               `toml:"environment"` // "development" or "production"
	Storage        StorageConfig        `toml:"storage"`
	Queue          QueueConfig          `toml:"queue"`
	Logging        LoggingConfig        `toml:"logging"`
	Classification ClassificationConfig `toml:"classification"`
	Moderation     ModerationConfig     `toml:"moderation"`
	Generation     GenerationConfig     `toml:"generation"`
	Intervention   InterventionConfig   `toml:"intervention"`
	Scheduler      SchedulerConfig      `toml:"scheduler"`
	Gemini         GeminiConfig         `toml:"gemini"`
	Claude         ClaudeConfig         `toml:"claude"`
	LLM            LLMConfig            `toml:"llm"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency"`        // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive"`        // Max times a message can be received before dead-letter
	QueueName         string `toml:"queue_name"`         // Queue name prefix in Badger
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ClassificationConfig controls the classification engine and its batch driver
type ClassificationConfig struct {
	BatchSize    int    `toml:"batch_size"`    // Max items pulled per classify batch
	MaxRetries   int    `toml:"max_retries"`   // LLM attempts per item (idempotent until the final status write)
	RetryBackoff string `toml:"retry_backoff"` // Initial backoff duration, doubled per attempt
	Throttle     string `toml:"throttle"`      // Minimum delay between sequential AI calls in a batch
}

// ModerationConfig controls the AI moderation gate
type ModerationConfig struct {
	Enabled bool   `toml:"enabled"` // Global kill switch: disabled short-circuits every call to pass, no log written
	Timeout string `toml:"timeout"` // Per-call AI timeout; exceeding it is a provider failure (fail-open)
}

// GenerationConfig controls the routing and generation engine
type GenerationConfig struct {
	BatchSize  int    `toml:"batch_size"`  // Max items pulled per processing batch
	Throttle   string `toml:"throttle"`    // Minimum delay between sequential AI calls in a batch
	StaleAfter string `toml:"stale_after"` // Items stuck in processing longer than this are reclaimed to pending
}

// InterventionConfig holds the civil-discourse thresholds.
// ProtectedThreshold must be >= MonitoringThreshold; both are ratios in [0,1].
type InterventionConfig struct {
	ProtectedThreshold  float64 `toml:"civil_discourse_protected" validate:"gte=0,lte=1"`
	MonitoringThreshold float64 `toml:"civil_discourse_monitoring" validate:"gte=0,lte=1"`
}

// SchedulerConfig holds the cron expressions for the batch drivers
type SchedulerConfig struct {
	Enabled              bool   `toml:"enabled"`
	ClassifySchedule     string `toml:"classify_schedule"`
	ProcessSchedule      string `toml:"process_schedule"`
	InterventionSchedule string `toml:"intervention_schedule"`
	ReclaimSchedule      string `toml:"reclaim_schedule"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key (or GEMINI_API_KEY env)
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-2.5-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (or ANTHROPIC_API_KEY env)
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "claude")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in praeco.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       4,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "praeco_jobs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Classification: ClassificationConfig{
			BatchSize:    50,
			MaxRetries:   3,
			RetryBackoff: "1s",
			Throttle:     "500ms",
		},
		Moderation: ModerationConfig{
			Enabled: true,
			Timeout: "2m",
		},
		Generation: GenerationConfig{
			BatchSize:  50,
			Throttle:   "500ms",
			StaleAfter: "30m",
		},
		Intervention: InterventionConfig{
			ProtectedThreshold:  0.8,
			MonitoringThreshold: 0.5,
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			ClassifySchedule:     "*/2 * * * *",  // Every 2 minutes
			ProcessSchedule:      "*/5 * * * *",  // Every 5 minutes
			InterventionSchedule: "*/30 * * * *", // Every 30 minutes
			ReclaimSchedule:      "*/10 * * * *", // Every 10 minutes
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-flash",
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
	}
}

// LoadConfig loads configuration in priority order:
// defaults -> config file(s) -> environment variables.
// Later config files override earlier ones.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies PRAECO_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRAECO_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("PRAECO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("PRAECO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PRAECO_LOG_OUTPUT"); output != "" {
		config.Logging.Output = strings.Split(output, ",")
	}

	if concurrency := os.Getenv("PRAECO_QUEUE_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = n
		}
	}
	if pollInterval := os.Getenv("PRAECO_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}

	if enabled := os.Getenv("PRAECO_MODERATION_ENABLED"); enabled != "" {
		config.Moderation.Enabled = enabled == "true" || enabled == "1"
	}

	if provider := os.Getenv("PRAECO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = key
	}
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Cross-field check validator tags can't express
	if c.Intervention.ProtectedThreshold < c.Intervention.MonitoringThreshold {
		return fmt.Errorf("invalid configuration: civil_discourse_protected (%.2f) must be >= civil_discourse_monitoring (%.2f)",
			c.Intervention.ProtectedThreshold, c.Intervention.MonitoringThreshold)
	}

	if c.Classification.BatchSize <= 0 {
		return fmt.Errorf("invalid configuration: classification.batch_size must be positive")
	}
	if c.Generation.BatchSize <= 0 {
		return fmt.Errorf("invalid configuration: generation.batch_size must be positive")
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"queue.poll_interval", c.Queue.PollInterval},
		{"queue.visibility_timeout", c.Queue.VisibilityTimeout},
		{"classification.retry_backoff", c.Classification.RetryBackoff},
		{"classification.throttle", c.Classification.Throttle},
		{"moderation.timeout", c.Moderation.Timeout},
		{"generation.throttle", c.Generation.Throttle},
		{"generation.stale_after", c.Generation.StaleAfter},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", field.name, err)
		}
	}

	return nil
}

// MustDuration parses a duration string already checked by Validate
func MustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
