// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibtools/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the identifier cache",
	Long: `Cache manages the SQLite database of provider answers. Cached "no record"
answers are kept too, so a purge of empty entries makes the next run ask
the providers again.`,
}

// --- stats subcommand ---

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts per provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCacheStore()
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Cache: %s\n", store.Path())
		fmt.Fprintf(os.Stdout, "Entries: %d (%d empty)\n", st.Entries, st.Empty)
		if st.Entries == 0 {
			return nil
		}
		providers := make([]string, 0, len(st.ByProvider))
		for p := range st.ByProvider {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		for _, p := range providers {
			fmt.Fprintf(os.Stdout, "  %-16s %d\n", p, st.ByProvider[p])
		}
		fmt.Fprintf(os.Stdout, "Oldest: %s\n", st.Oldest.Format(time.RFC3339))
		fmt.Fprintf(os.Stdout, "Newest: %s\n", st.Newest.Format(time.RFC3339))
		return nil
	},
}

// --- purge subcommand ---

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cache entries",
	Long: `Purge deletes cache entries matching every given filter. With no filter
it deletes everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		providerName, _ := cmd.Flags().GetString("provider")
		emptyOnly, _ := cmd.Flags().GetBool("empty")

		f := cache.PurgeFilter{Provider: providerName, EmptyOnly: emptyOnly}
		if olderThan > 0 {
			f.Before = time.Now().Add(-olderThan)
		}

		store, err := openCacheStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Purged %d entries from %s\n", n, store.Path())
		return nil
	},
}

func openCacheStore() (*cache.SQLiteStore, error) {
	if cfg.CachePath == "" {
		return nil, fmt.Errorf("cache_path is empty: the cache is in memory only")
	}
	return cache.OpenSQLite(cfg.CachePath)
}

func init() {
	cachePurgeCmd.Flags().Duration("older-than", 0, "only entries stored longer ago than this (e.g. 720h)")
	cachePurgeCmd.Flags().String("provider", "", "only entries from this provider")
	cachePurgeCmd.Flags().Bool("empty", false, "only cached empty answers")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
