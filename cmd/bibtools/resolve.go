// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibtools/internal/cache"
	"github.com/pdiddy/bibtools/internal/citation"
	"github.com/pdiddy/bibtools/internal/dedup"
	"github.com/pdiddy/bibtools/internal/export"
	"github.com/pdiddy/bibtools/internal/match"
	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/internal/provider"
	"github.com/pdiddy/bibtools/internal/resolve"
	"github.com/pdiddy/bibtools/internal/source"
	"github.com/pdiddy/bibtools/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [files...]",
	Short: "Resolve citations to deduplicated canonical records",
	Long: `Resolve reads citations from text files (one per line), CSV files
(a named column), or Markdown files (the References section), looks each one
up at the configured providers, and writes the deduplicated records.

Use "-" to read citations from standard input. Progress goes to stderr;
records go to stdout unless --out is given. Interrupting a run keeps the
citations already resolved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.String("column", "citation", "CSV column holding the citation text")
	f.StringP("format", "f", export.FormatCSV, "output format ("+strings.Join(export.Formats, ", ")+")")
	f.StringP("out", "o", "", "output file (default stdout)")
	f.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	f.Bool("no-cache", false, "keep provider answers in memory only")
	f.StringSlice("providers", nil, "providers in priority order (default from config)")
	f.Int("concurrency", 0, "citations resolved in parallel (default from config)")
	f.Float64("accept-threshold", 0, "minimum confidence to accept a match (default from config)")

	viper.BindPFlag("providers", f.Lookup("providers"))
	viper.BindPFlag("concurrency", f.Lookup("concurrency"))
	viper.BindPFlag("accept_threshold", f.Lookup("accept-threshold"))

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	column, _ := cmd.Flags().GetString("column")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	if !slices.Contains(export.Formats, format) {
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(export.Formats, ", "))
	}

	citations, err := readCitations(args, column)
	if err != nil {
		return err
	}
	if len(citations) == 0 {
		return fmt.Errorf("no citations found in %s", strings.Join(args, ", "))
	}

	metrics := observability.NewMetrics()

	registry, err := source.Build(cfg.Providers, source.Options{
		Client:             &http.Client{Timeout: cfg.Timeout},
		UserAgent:          cfg.UserAgent,
		CrossrefEmail:      creds.CrossrefEmail,
		OpenAlexEmail:      creds.OpenAlexEmail,
		SemanticScholarKey: creds.SemanticScholarKey,
		HALBase:            creds.HALAPIURL,
	})
	if err != nil {
		return err
	}
	client := provider.NewClient(registry, cfg.RetryConfig, cfg.RateConfig,
		provider.WithLogger(logger), provider.WithMetrics(metrics))

	scorer, err := match.NewScorer(cfg.ScoringConfig)
	if err != nil {
		return err
	}

	idCache, closeCache, err := openCache(noCache, metrics)
	if err != nil {
		return err
	}
	defer closeCache()

	resolver, err := resolve.New(client, scorer, cfg.ResolveConfig,
		resolve.WithCache(idCache),
		resolve.WithLogger(logger),
		resolve.WithMetrics(metrics),
		resolve.WithProgress(os.Stderr),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Resolving %d citations against %s\n", len(citations), strings.Join(cfg.Providers, ", "))
	batch, runErr := resolver.ResolveBatch(cmd.Context(), citations)

	merger := dedup.NewMerger(cfg.DedupConfig, dedup.WithLogger(logger), dedup.WithMetrics(metrics))
	records := merger.Merge(batch.Results)
	if err := dedup.Verify(records); err != nil {
		return err
	}

	if err := writeRecords(outPath, format, records); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nResolve complete: %d resolved, %d unresolved, %d cancelled, %d canonical records (run %s)\n",
		batch.Resolved, batch.Unresolved, batch.Cancelled, countResolved(records), batch.RunID)

	if metricsFile != "" {
		if err := metrics.WriteFile(metricsFile); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("resolution interrupted after %d of %d citations: %w",
			len(batch.Results), len(citations), runErr)
	}
	return nil
}

// readCitations reads every input, in argument order.
func readCitations(paths []string, column string) ([]types.Citation, error) {
	var all []types.Citation
	for _, path := range paths {
		var (
			cs  []types.Citation
			err error
		)
		if path == "-" {
			cs, err = citation.ReadLines(os.Stdin, "stdin")
		} else {
			cs, err = citation.ReadFile(path, column)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, cs...)
	}
	return all, nil
}

// openCache returns the identifier cache and a function that releases it.
// An empty cache_path or --no-cache keeps answers in memory for the run.
func openCache(memoryOnly bool, metrics *observability.Metrics) (*cache.Cache, func(), error) {
	opts := []cache.Option{cache.WithLogger(logger), cache.WithMetrics(metrics)}
	if memoryOnly || cfg.CachePath == "" {
		c, err := cache.New(cache.NewMemoryStore(), cfg.CacheSize, opts...)
		return c, func() {}, err
	}

	store, err := cache.OpenSQLite(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	c, err := cache.New(store, cfg.CacheSize, opts...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return c, func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Str("path", store.Path()).Msg("closing cache")
		}
	}, nil
}

// writeRecords writes records to path, or stdout when path is empty.
func writeRecords(path, format string, records []types.CanonicalRecord) (err error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("creating %s: %w", path, cerr)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		w = f
	}
	return export.Write(w, format, records)
}

func countResolved(records []types.CanonicalRecord) int {
	n := 0
	for _, r := range records {
		if !r.Unresolved {
			n++
		}
	}
	return n
}
