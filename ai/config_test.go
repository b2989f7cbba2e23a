package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "qwen2.5:3b", cfg.Model)
	assert.Equal(t, "none", cfg.Token)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("https://api.openai.com/v1"),
			WithModel("gpt-4o-mini"),
			WithToken("sk-test"),
			WithTemperature(0.7),
			WithMaxTokens(256),
		)

		assert.Equal(t, "https://api.openai.com/v1", cfg.Host)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, "sk-test", cfg.Token)
		assert.Equal(t, 0.7, cfg.Temperature)
		assert.Equal(t, 256, cfg.MaxTokens)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"has trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.expected, cfg.Host)
			assert.Equal(t, "none", cfg.Token)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config is normalized", func(t *testing.T) {
		cfg := &Config{Host: "http://localhost:11434", Model: "qwen2.5:3b"}

		assert.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	tests := []struct {
		name     string
		cfg      Config
		contains string
	}{
		{"missing host", Config{Model: "m"}, "Host"},
		{"missing model", Config{Host: "http://h"}, "Model"},
		{"temperature too high", Config{Host: "http://h", Model: "m", Temperature: 2.5}, "Temperature"},
		{"negative temperature", Config{Host: "http://h", Model: "m", Temperature: -1}, "Temperature"},
		{"negative max tokens", Config{Host: "http://h", Model: "m", MaxTokens: -1}, "MaxTokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
