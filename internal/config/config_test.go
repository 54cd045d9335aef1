// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "pagepilot", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 20*time.Second, cfg.Browser.LoadTimeout)
	assert.Equal(t, "https://www.google.com/search?q=", cfg.Planner.SearchURL)
	assert.Equal(t, 4, cfg.Agent.MaxConcurrent)
	assert.Equal(t, 3, cfg.Agent.ActionRetries)
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	t.Parallel()
	v := viper.New()
	SetDefaults(v)
	v.Set("agent.max_concurrent", 2)
	v.Set("planner.search_url", "https://duckduckgo.com/?q=")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Agent.MaxConcurrent)
	assert.Equal(t, "https://duckduckgo.com/?q=", cfg.Planner.SearchURL)
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Agent.MaxConcurrent = 0 }},
		{"zero retries", func(c *Config) { c.Agent.ActionRetries = 0 }},
		{"zero load timeout", func(c *Config) { c.Browser.LoadTimeout = 0 }},
		{"empty search url", func(c *Config) { c.Planner.SearchURL = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
