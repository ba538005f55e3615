package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	Retention   RetentionConfig `toml:"retention"`
	Claude      ClaudeConfig    `toml:"claude"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Gemini      GeminiConfig    `toml:"gemini"`
	LLM         LLMConfig       `toml:"llm"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// AnalysisConfig controls the orchestration layer: retries, backoff,
// circuit breaking and result caching.
type AnalysisConfig struct {
	MaxAttempts      int     `toml:"max_attempts"`      // Retry attempts per analysis (default: 3)
	BackoffBase      string  `toml:"backoff_base"`      // Initial backoff duration (default: "1s")
	BackoffCap       string  `toml:"backoff_cap"`       // Maximum backoff duration (default: "10s")
	CircuitThreshold int     `toml:"circuit_threshold"` // Consecutive failures before the breaker opens (default: 5)
	CircuitCooldown  string  `toml:"circuit_cooldown"`  // Time before an open breaker resets (default: "60s")
	CacheEnabled     bool    `toml:"cache_enabled"`     // Enable in-memory result cache (default: true)
	Temperature      float32 `toml:"temperature"`       // Completion temperature, kept low for reproducibility (default: 0.1)
}

// RetentionConfig controls the scheduled assessment retention sweep.
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`  // Enable scheduled cleanup of old assessments
	Schedule string `toml:"schedule"` // Cron schedule (default: "0 */10 * * * *")
	MaxKept  int    `toml:"max_kept"` // Most-recent assessments to keep (default: 5)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`    // Anthropic API key (env ANTHROPIC_API_KEY preferred)
	Model     string `toml:"model"`      // Model for analysis (default: "claude-sonnet-4-20250514")
	MaxTokens int    `toml:"max_tokens"` // Maximum tokens in response (default: 8192)
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Minimum spacing between calls (default: "1s")
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string `toml:"api_key"`    // OpenAI API key (env OPENAI_API_KEY preferred)
	Model     string `toml:"model"`      // Model for analysis (default: "gpt-4o")
	MaxTokens int    `toml:"max_tokens"` // Maximum tokens in response (default: 8192)
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Minimum spacing between calls (default: "1s")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey    string `toml:"api_key"`    // Gemini API key (env GEMINI_API_KEY preferred)
	Model     string `toml:"model"`      // Model for analysis (default: "gemini-3-flash-preview")
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Minimum spacing between calls (default: "4s" for 15 RPM)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderOpenAI uses the OpenAI chat completions API
	LLMProviderOpenAI LLMProvider = "openai"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude", "openai" or "gemini" (default: "claude")
}

// WebSocketConfig contains configuration for status event streaming
type WebSocketConfig struct {
	MinLevel      string   `toml:"min_level"`      // Minimum event level to broadcast
	AllowedEvents []string `toml:"allowed_events"` // Whitelist of event types to broadcast; empty allows all
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in solvency.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Analysis: AnalysisConfig{
			MaxAttempts:      3,
			BackoffBase:      "1s",
			BackoffCap:       "10s",
			CircuitThreshold: 5,
			CircuitCooldown:  "60s",
			CacheEnabled:     true,
			Temperature:      0.1, // Low temperature biases the model toward reproducible output
		},
		Retention: RetentionConfig{
			Enabled:  true,
			Schedule: "0 */10 * * * *", // Every 10 minutes (cron format with seconds)
			MaxKept:  5,
		},
		Claude: ClaudeConfig{
			APIKey:    "",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
			Timeout:   "5m",
			RateLimit: "1s",
		},
		OpenAI: OpenAIConfig{
			APIKey:    "",
			Model:     "gpt-4o",
			MaxTokens: 8192,
			Timeout:   "5m",
			RateLimit: "1s",
		},
		Gemini: GeminiConfig{
			APIKey:    "",
			Model:     "gemini-3-flash-preview",
			Timeout:   "5m",
			RateLimit: "4s", // Free-tier friendly (15 RPM)
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		WebSocket: WebSocketConfig{
			MinLevel:      "info",
			AllowedEvents: []string{},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SOLVENCY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SOLVENCY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SOLVENCY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("SOLVENCY_STORAGE_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("SOLVENCY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Provider API keys are read from the conventional environment variables
	// first; the config file value is a fallback only.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("SOLVENCY_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	} else if key := os.Getenv("SOLVENCY_OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}

	if provider := os.Getenv("SOLVENCY_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
