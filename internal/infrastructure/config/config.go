package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/framegate/framegate/internal/domain/service"
)

// Config is the application configuration: file values (config.yaml)
// layered under environment variables, with spec'd defaults below
// both.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProviderConfig configures the upstream model endpoint.
type ProviderConfig struct {
	Type    string `mapstructure:"type"` // openai | scripted
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// SessionConfig carries the per-session operational parameters.
type SessionConfig struct {
	FrameTimeoutMs  int     `mapstructure:"frame_timeout_ms"`
	ToolTimeoutMs   int     `mapstructure:"tool_timeout_ms"`
	ToolRetries     int     `mapstructure:"tool_retries"`
	RepairRetries   int     `mapstructure:"repair_retries"`
	Temperature     float32 `mapstructure:"temperature"`
	Seed            int     `mapstructure:"seed"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	MaxQueuedChunks int     `mapstructure:"max_queued_chunks"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the session store.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite | postgres | memory
	DSN  string `mapstructure:"dsn"`
}

// ArtifactsConfig configures the per-session artifact directory.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ToSessionConfig converts the raw millisecond values into the
// session controller's config.
func (c *Config) ToSessionConfig() service.SessionConfig {
	return service.SessionConfig{
		FrameTimeout:  time.Duration(c.Session.FrameTimeoutMs) * time.Millisecond,
		ToolTimeout:   time.Duration(c.Session.ToolTimeoutMs) * time.Millisecond,
		ToolRetries:   c.Session.ToolRetries,
		RepairRetries: c.Session.RepairRetries,
		Model:         c.Provider.Model,
		Temperature:   c.Session.Temperature,
		Seed:          c.Session.Seed,
		MaxTokens:     c.Session.MaxTokens,
	}
}

// Load reads configuration from configPath (a directory holding an
// optional config.yaml), the process environment, and a .env file in
// the working directory when present.
func Load(configPath string) (*Config, error) {
	// .env values become plain environment variables; existing env
	// always wins.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	setDefaults(v)
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Session.FrameTimeoutMs <= 0 {
		return fmt.Errorf("frame_timeout_ms must be positive")
	}
	if c.Session.ToolTimeoutMs <= 0 {
		return fmt.Errorf("tool_timeout_ms must be positive")
	}
	if c.Session.ToolRetries < 0 || c.Session.RepairRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}
	if c.Session.MaxQueuedChunks <= 0 {
		return fmt.Errorf("max_queued_chunks must be positive")
	}
	if c.Provider.Type == "openai" && c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required for the openai provider")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("provider.type", "scripted")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "scripted-v1")

	v.SetDefault("session.frame_timeout_ms", 15000)
	v.SetDefault("session.tool_timeout_ms", 8000)
	v.SetDefault("session.tool_retries", 1)
	v.SetDefault("session.repair_retries", 1)
	v.SetDefault("session.temperature", 0.2)
	v.SetDefault("session.seed", 42)
	v.SetDefault("session.max_tokens", 384)
	v.SetDefault("session.max_queued_chunks", 128)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "framegate.db")

	v.SetDefault("artifacts.dir", "artifacts")
}

// bindEnv maps the published environment variable names onto config
// keys.
func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"session.frame_timeout_ms":  "FRAME_TIMEOUT_MS",
		"session.tool_timeout_ms":   "TOOL_TIMEOUT_MS",
		"session.tool_retries":      "TOOL_RETRIES",
		"session.repair_retries":    "REPAIR_RETRIES",
		"session.temperature":       "TEMPERATURE",
		"session.seed":              "SEED",
		"session.max_tokens":        "MAX_TOKENS",
		"session.max_queued_chunks": "MAX_QUEUED_CHUNKS",
		"provider.type":             "PROVIDER_TYPE",
		"provider.base_url":         "PROVIDER_BASE_URL",
		"provider.api_key":          "PROVIDER_API_KEY",
		"provider.model":            "MODEL_ID",
		"server.host":               "SERVER_HOST",
		"server.port":               "SERVER_PORT",
		"log.level":                 "LOG_LEVEL",
		"database.type":             "DATABASE_TYPE",
		"database.dsn":              "DATABASE_DSN",
		"artifacts.dir":             "ARTIFACTS_DIR",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}
