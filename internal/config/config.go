// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Planner PlannerConfig `mapstructure:"planner" yaml:"planner"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Voice   VoiceConfig   `mapstructure:"voice" yaml:"voice"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the console color names per log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser tabs agents run in.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// LoadTimeout bounds how long a navigation step waits for the tab to
	// report load completion before the step is treated as failed.
	LoadTimeout   time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	LoadPollEvery time.Duration `mapstructure:"load_poll_every" yaml:"load_poll_every"`
}

// PlannerConfig configures goal planning and the optional completion service.
type PlannerConfig struct {
	// SearchURL is the prefix queries are percent-encoded onto.
	SearchURL string    `mapstructure:"search_url" yaml:"search_url"`
	LLM       LLMConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMConfig defines the external text-completion service. An empty APIKey
// disables the service entirely; planning then uses the rule-based path only.
type LLMConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerMinute caps outbound completion calls.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// AgentConfig bounds the coordinator.
type AgentConfig struct {
	// MaxConcurrent limits how many agents step through plans at once.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	// ActionRetries is the attempt budget per DOM action.
	ActionRetries int `mapstructure:"action_retries" yaml:"action_retries"`
	// BroadcastBuffer sizes each observer's update channel.
	BroadcastBuffer int `mapstructure:"broadcast_buffer" yaml:"broadcast_buffer"`
}

// ServerConfig configures the HTTP/WebSocket coordinator surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// VoiceConfig configures the speech-to-text subscription.
type VoiceConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Language   string `mapstructure:"language" yaml:"language"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"api_key" yaml:"-"`
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagepilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.load_timeout", "20s")
	v.SetDefault("browser.load_poll_every", "250ms")
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 900})

	// -- Planner --
	v.SetDefault("planner.search_url", "https://www.google.com/search?q=")
	v.SetDefault("planner.llm.model", "gemini-2.5-flash")
	v.SetDefault("planner.llm.api_timeout", "30s")
	v.SetDefault("planner.llm.temperature", 0.2)
	v.SetDefault("planner.llm.max_tokens", 1024)
	v.SetDefault("planner.llm.requests_per_minute", 30)

	// -- Agent --
	v.SetDefault("agent.max_concurrent", 4)
	v.SetDefault("agent.action_retries", 3)
	v.SetDefault("agent.broadcast_buffer", 64)

	// -- Server --
	v.SetDefault("server.addr", "127.0.0.1:8733")

	// -- Voice --
	v.SetDefault("voice.enabled", false)
	v.SetDefault("voice.language", "en")
	v.SetDefault("voice.model", "nova-2")
	v.SetDefault("voice.sample_rate", 16000)
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance that has already read files/env.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("planner.llm.api_key", "PAGEPILOT_LLM_API_KEY")
	v.BindEnv("voice.api_key", "DEEPGRAM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxConcurrent <= 0 {
		return fmt.Errorf("agent.max_concurrent must be a positive integer")
	}
	if c.Agent.ActionRetries <= 0 {
		return fmt.Errorf("agent.action_retries must be a positive integer")
	}
	if c.Browser.LoadTimeout <= 0 {
		return fmt.Errorf("browser.load_timeout must be a positive duration")
	}
	if c.Planner.SearchURL == "" {
		return fmt.Errorf("planner.search_url is required")
	}
	return nil
}
