// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by the provider adapters.
type HTTPConfig struct {
	// Timeout bounds a single HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with every request (e.g. "bibtools/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FieldWeights are the per-field contributions to a match confidence.
type FieldWeights struct {
	Title   float64 `json:"title" yaml:"title" mapstructure:"title"`
	Authors float64 `json:"authors" yaml:"authors" mapstructure:"authors"`
	Year    float64 `json:"year" yaml:"year" mapstructure:"year"`
	Journal float64 `json:"journal" yaml:"journal" mapstructure:"journal"`
}

// Sum returns the total weight.
func (w FieldWeights) Sum() float64 {
	return w.Title + w.Authors + w.Year + w.Journal
}

// Normalized returns the weights scaled to sum to 1.
func (w FieldWeights) Normalized() FieldWeights {
	s := w.Sum()
	if s <= 0 {
		return w
	}
	return FieldWeights{Title: w.Title / s, Authors: w.Authors / s, Year: w.Year / s, Journal: w.Journal / s}
}

// ScoringConfig holds match scorer policy.
type ScoringConfig struct {
	Weights FieldWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	// NeutralScore is the similarity credited when a field is missing on
	// either side. Must lie strictly between 0 and 1.
	NeutralScore float64 `json:"neutral_score" yaml:"neutral_score" mapstructure:"neutral_score"`
}

// RetryConfig holds the provider client's retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per provider query.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BackoffBase is the delay before the first retry; it doubles each retry.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base" mapstructure:"backoff_base"`

	// BackoffMax caps a single backoff delay.
	BackoffMax time.Duration `json:"backoff_max" yaml:"backoff_max" mapstructure:"backoff_max"`

	// AttemptTimeout bounds one attempt. Zero disables the per-attempt deadline.
	AttemptTimeout time.Duration `json:"attempt_timeout" yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
}

// RateConfig holds per-provider request limits.
type RateConfig struct {
	// RatePerSecond is the sustained request rate per provider. Zero means unlimited.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// Burst is the token bucket size.
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// ProviderConcurrency caps in-flight requests per provider.
	ProviderConcurrency int `json:"provider_concurrency" yaml:"provider_concurrency" mapstructure:"provider_concurrency"`
}

// ResolveConfig holds resolver policy.
type ResolveConfig struct {
	// Providers lists provider names in priority order.
	Providers []string `json:"providers" yaml:"providers" mapstructure:"providers"`

	// AcceptThreshold is the minimum confidence for a citation to resolve.
	AcceptThreshold float64 `json:"accept_threshold" yaml:"accept_threshold" mapstructure:"accept_threshold"`

	// HighConfidenceThreshold stops querying further providers early.
	HighConfidenceThreshold float64 `json:"high_confidence_threshold" yaml:"high_confidence_threshold" mapstructure:"high_confidence_threshold"`

	// Concurrency is the number of citations resolved in parallel.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// DedupConfig holds deduplicator policy.
type DedupConfig struct {
	// Trust lists provider names from most to least trusted. Providers not
	// listed rank after every listed provider.
	Trust []string `json:"trust" yaml:"trust" mapstructure:"trust"`

	// SecondaryThreshold is the title similarity required to merge records
	// that carry no identifier.
	SecondaryThreshold float64 `json:"secondary_threshold" yaml:"secondary_threshold" mapstructure:"secondary_threshold"`
}

// CacheConfig holds identifier cache settings.
type CacheConfig struct {
	// CachePath is the SQLite database file. Empty keeps the cache in memory.
	CachePath string `json:"cache_path" yaml:"cache_path" mapstructure:"cache_path"`

	// CacheSize is the number of entries held in the in-memory front.
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// Config is the flat configuration object. Embedded structs are squashed so
// every key sits at the top level of the config file.
type Config struct {
	ResolveConfig `yaml:",inline" mapstructure:",squash"`
	ScoringConfig `yaml:",inline" mapstructure:",squash"`
	RetryConfig   `yaml:",inline" mapstructure:",squash"`
	RateConfig    `yaml:",inline" mapstructure:",squash"`
	DedupConfig   `yaml:",inline" mapstructure:",squash"`
	CacheConfig   `yaml:",inline" mapstructure:",squash"`
	HTTPConfig    `yaml:",inline" mapstructure:",squash"`

	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a key.
func DefaultConfig() Config {
	return Config{
		ResolveConfig: ResolveConfig{
			Providers:               []string{"crossref", "hal", "openalex", "semanticscholar"},
			AcceptThreshold:         0.75,
			HighConfidenceThreshold: 0.95,
			Concurrency:             4,
		},
		ScoringConfig: DefaultScoring(),
		RetryConfig: RetryConfig{
			MaxAttempts:    3,
			BackoffBase:    time.Second,
			BackoffMax:     30 * time.Second,
			AttemptTimeout: 20 * time.Second,
		},
		RateConfig: RateConfig{
			RatePerSecond:       5,
			Burst:               5,
			ProviderConcurrency: 2,
		},
		DedupConfig: DedupConfig{
			Trust:              []string{"crossref", "hal", "openalex", "semanticscholar"},
			SecondaryThreshold: 0.9,
		},
		CacheConfig: CacheConfig{
			CachePath: ".bibtools/cache.db",
			CacheSize: 1024,
		},
		HTTPConfig: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "bibtools/0.1",
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultScoring returns the default scorer weights and neutral score.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Weights:      FieldWeights{Title: 0.4, Authors: 0.25, Year: 0.15, Journal: 0.2},
		NeutralScore: 0.6,
	}
}

// Validate checks preconditions that make a run impossible.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return ErrNoProviders
	}
	for i, p := range c.Providers {
		if p == "" {
			return fmt.Errorf("%w: providers[%d] is empty", ErrInvalidConfig, i)
		}
	}
	for name, v := range map[string]float64{
		"accept_threshold":          c.AcceptThreshold,
		"high_confidence_threshold": c.HighConfidenceThreshold,
		"secondary_threshold":       c.SecondaryThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if err := c.ScoringConfig.Validate(); err != nil {
		return err
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BackoffBase < 0 || c.BackoffMax < 0 || c.AttemptTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("%w: rate_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate checks the scorer policy.
func (s ScoringConfig) Validate() error {
	w := s.Weights
	if w.Title < 0 || w.Authors < 0 || w.Year < 0 || w.Journal < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("%w: weights must not all be zero", ErrInvalidConfig)
	}
	if s.NeutralScore <= 0 || s.NeutralScore >= 1 {
		return fmt.Errorf("%w: neutral_score must lie strictly between 0 and 1, got %v", ErrInvalidConfig, s.NeutralScore)
	}
	return nil
}
