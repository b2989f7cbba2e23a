// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads driftnet's configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/poiesic/driftnet/ai"
	"github.com/poiesic/driftnet/expand"
	"github.com/poiesic/driftnet/fetch"
	"github.com/poiesic/driftnet/ingestion"
	"github.com/poiesic/driftnet/links"
	"github.com/poiesic/driftnet/normalize"
	"github.com/poiesic/driftnet/schedule"
	"github.com/poiesic/driftnet/source/telegram"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvSources = "DRIFTNET_SOURCES"
	EnvDB      = "DRIFTNET_DB"
	EnvAIHost  = "DRIFTNET_AI_HOST"
	EnvAIModel = "DRIFTNET_AI_MODEL"
	EnvAIToken = "DRIFTNET_AI_TOKEN"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the full driftnet configuration.
type Config struct {
	Sources   []string        `yaml:"sources"`
	DBPath    string          `yaml:"db_path"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Links     LinksConfig     `yaml:"links"`
	Expand    ExpandConfig    `yaml:"expand"`
	Normalize NormalizeConfig `yaml:"normalize"`
	AI        AIConfig        `yaml:"ai"`
}

// IngestConfig configures the orchestrator and its schedule.
type IngestConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	MaxItemsPerSource int           `yaml:"max_items_per_source"`
	Interval          time.Duration `yaml:"interval"`
}

// FetchConfig configures retries and throttling for source fetches.
type FetchConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	Jitter           float64       `yaml:"jitter"`
	OverFetch        int           `yaml:"over_fetch"`
	MaxThrottleWaits int           `yaml:"max_throttle_waits"`
	ThrottleWait     time.Duration `yaml:"throttle_wait"`
}

// TelegramConfig configures the channel preview client.
type TelegramConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LinksConfig configures link resolution.
type LinksConfig struct {
	IndirectDomains []string      `yaml:"indirect_domains"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRedirects    int           `yaml:"max_redirects"`
	ItemWorkers     int           `yaml:"item_workers"`
	BatchWorkers    int           `yaml:"batch_workers"`
}

// ExpandConfig configures secondary expansion.
type ExpandConfig struct {
	Enabled bool          `yaml:"enabled"`
	Delay   time.Duration `yaml:"delay"`
	// Browser selects the headless browser fetcher instead of plain HTTP.
	Browser bool `yaml:"browser"`
	// BrowserURL is a DevTools websocket URL of a running browser. Empty launches one.
	BrowserURL string `yaml:"browser_url"`
}

// NormalizeConfig configures the normalization processor.
type NormalizeConfig struct {
	Interval time.Duration `yaml:"interval"`
	Delay    time.Duration `yaml:"delay"`
	MaxItems int           `yaml:"max_items"`
}

// AIConfig configures the normalization model.
type AIConfig struct {
	Host        string  `yaml:"host"`
	Model       string  `yaml:"model"`
	Token       string  `yaml:"token"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Default returns a Config populated with the package defaults.
func Default() *Config {
	model := ai.DefaultConfig()
	return &Config{
		DBPath: "driftnet.db",
		Ingest: IngestConfig{
			Concurrency:       ingestion.DefaultConcurrency,
			MaxItemsPerSource: ingestion.DefaultMaxItemsPerSource,
			Interval:          schedule.DefaultIngestInterval,
		},
		Fetch: FetchConfig{
			MaxAttempts:      fetch.DefaultMaxAttempts,
			BaseDelay:        fetch.DefaultBaseDelay,
			OverFetch:        fetch.DefaultOverFetch,
			MaxThrottleWaits: fetch.DefaultMaxThrottleWaits,
			ThrottleWait:     fetch.DefaultThrottleWait,
		},
		Telegram: TelegramConfig{
			BaseURL: telegram.DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Links: LinksConfig{
			Timeout:      links.DefaultTimeout,
			MaxRedirects: links.DefaultMaxRedirects,
			ItemWorkers:  links.DefaultMaxLinkWorkers,
			BatchWorkers: links.DefaultMaxBatchWorkers,
		},
		Expand: ExpandConfig{
			Enabled: true,
			Delay:   expand.DefaultDelay,
		},
		Normalize: NormalizeConfig{
			Interval: schedule.DefaultNormalizeInterval,
			Delay:    normalize.DefaultDelay,
		},
		AI: AIConfig{
			Host:        model.Host,
			Model:       model.Model,
			Token:       model.Token,
			Temperature: model.Temperature,
			MaxTokens:   model.MaxTokens,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSources); ok {
		c.Sources = SplitSources(v)
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvAIHost); ok && v != "" {
		c.AI.Host = v
	}
	if v, ok := lookup(EnvAIModel); ok && v != "" {
		c.AI.Model = v
	}
	if v, ok := lookup(EnvAIToken); ok && v != "" {
		c.AI.Token = v
	}
}

// SplitSources parses a comma separated channel list. Blank entries and a
// leading @ are dropped.
func SplitSources(list string) []string {
	var sources []string
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimPrefix(strings.TrimSpace(s), "@")
		if s != "" {
			sources = append(sources, s)
		}
	}
	return sources
}

// ModelConfig converts the model settings into an ai.Config.
func (c *Config) ModelConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithModel(c.AI.Model),
		ai.WithToken(c.AI.Token),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxTokens(c.AI.MaxTokens),
	)
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.DBPath != "", "db_path is required")
	check(c.Ingest.Concurrency > 0, "ingest.concurrency must be > 0")
	check(c.Ingest.MaxItemsPerSource > 0, "ingest.max_items_per_source must be > 0")
	check(c.Ingest.Interval > 0, "ingest.interval must be > 0")
	check(c.Fetch.MaxAttempts > 0, "fetch.max_attempts must be > 0")
	check(c.Fetch.BaseDelay >= 0, "fetch.base_delay must be >= 0")
	check(c.Fetch.Jitter >= 0 && c.Fetch.Jitter <= 1, "fetch.jitter must be between 0 and 1")
	check(c.Fetch.OverFetch > 0, "fetch.over_fetch must be > 0")
	check(c.Fetch.MaxThrottleWaits >= 0, "fetch.max_throttle_waits must be >= 0")
	check(c.Telegram.BaseURL != "", "telegram.base_url is required")
	check(c.Fetch.ThrottleWait >= 0, "fetch.throttle_wait must be >= 0")
	check(c.Telegram.Timeout >= 0, "telegram.timeout must be >= 0")
	check(c.Links.Timeout > 0, "links.timeout must be > 0")
	check(c.Links.MaxRedirects > 0, "links.max_redirects must be > 0")
	check(c.Links.ItemWorkers > 0, "links.item_workers must be > 0")
	check(c.Links.BatchWorkers > 0, "links.batch_workers must be > 0")
	check(c.Expand.Delay >= 0, "expand.delay must be >= 0")
	check(c.Normalize.Interval > 0, "normalize.interval must be > 0")
	check(c.Normalize.Delay >= 0, "normalize.delay must be >= 0")
	check(c.Normalize.MaxItems >= 0, "normalize.max_items must be >= 0")

	if err := c.ModelConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
