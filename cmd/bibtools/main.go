// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibtools CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/internal/secrets"
	"github.com/pdiddy/bibtools/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Run state populated by PersistentPreRunE.
var (
	cfg    types.Config
	logger zerolog.Logger
	creds  secrets.Credentials
)

// rootCmd is the base command for the bibtools CLI.
var rootCmd = &cobra.Command{
	Use:   "bibtools",
	Short: "Resolve and deduplicate bibliographic citations",
	Long: `bibtools resolves free-text citations to canonical publication records
using Crossref, HAL, OpenAlex, Semantic Scholar, and DataCite, then merges
records that describe the same work.

Provider answers are cached in a local SQLite database so repeated runs
over the same bibliography make no network calls.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = c
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		})

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		creds = s
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./bibtools.yaml or ~/.config/bibtools/bibtools.yaml)")
	pf.String("secrets-dir", ".secrets/", "directory of credential files")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")
	pf.String("cache-path", "", "SQLite cache database path (default .bibtools/cache.db)")

	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("log_format", pf.Lookup("log-format"))
	viper.BindPFlag("cache_path", pf.Lookup("cache-path"))
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibtools")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibtools"))
		}
	}

	// A .env file in the working directory may set BIBTOOLS_* variables.
	_ = godotenv.Load()
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindEnv maps BIBTOOLS_* variables onto keys; "weights.title" reads
// BIBTOOLS_WEIGHTS_TITLE.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("BIBTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
