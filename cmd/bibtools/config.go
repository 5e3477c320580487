// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibtools/pkg/types"
)

// setDefaults registers every recognized key with its default so that
// environment variables and Unmarshal see the full key set.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	defaults := map[string]any{
		"providers":                 d.Providers,
		"accept_threshold":          d.AcceptThreshold,
		"high_confidence_threshold": d.HighConfidenceThreshold,
		"concurrency":               d.Concurrency,
		"weights.title":             d.Weights.Title,
		"weights.authors":           d.Weights.Authors,
		"weights.year":              d.Weights.Year,
		"weights.journal":           d.Weights.Journal,
		"neutral_score":             d.NeutralScore,
		"max_attempts":              d.MaxAttempts,
		"backoff_base":              d.BackoffBase,
		"backoff_max":               d.BackoffMax,
		"attempt_timeout":           d.AttemptTimeout,
		"rate_per_second":           d.RatePerSecond,
		"burst":                     d.Burst,
		"provider_concurrency":      d.ProviderConcurrency,
		"trust":                     d.Trust,
		"secondary_threshold":       d.SecondaryThreshold,
		"cache_path":                d.CachePath,
		"cache_size":                d.CacheSize,
		"timeout":                   d.Timeout,
		"user_agent":                d.UserAgent,
		"log_level":                 d.LogLevel,
		"log_format":                d.LogFormat,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig decodes and validates the effective configuration.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("%w: decoding configuration: %v", types.ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration after merging defaults, the config file,
BIBTOOLS_* environment variables, and flags. The output is a valid
bibtools.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
