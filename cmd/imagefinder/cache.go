package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command and its subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the crawl cache",
		Long: `Cache shows or clears the pages cached by "imagefinder serve --cache".
Pages older than the cache TTL (cacheTTL in the serve section of the
configuration file) are never reused and can be purged.

Examples:
  imagefinder cache stats
  imagefinder cache purge`,
	}

	cmd.PersistentFlags().String("cache-dir", "",
		"Directory of the crawl database (default: the configured cache directory)")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the cached page count and hosts",
		Args:  cobra.NoArgs,
		RunE:  runCacheStatsCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete cached pages older than the cache TTL",
		Args:  cobra.NoArgs,
		RunE:  runCachePurgeCmd,
	})

	return cmd
}

func runCacheStatsCmd(cmd *cobra.Command, _ []string) error {
	db, err := openCrawlDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := db.PageCount(cmd.Context())
	if err != nil {
		return err
	}
	hosts, err := db.Hosts(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", db.Path())
	fmt.Fprintf(out, "Cached pages: %d\n", count)
	if len(hosts) > 0 {
		fmt.Fprintf(out, "Hosts (%d):\n", len(hosts))
		for _, host := range hosts {
			fmt.Fprintf(out, "  - %s\n", host)
		}
	}
	return nil
}

func runCachePurgeCmd(cmd *cobra.Command, _ []string) error {
	db, err := openCrawlDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Purge(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired pages.\n", n)
	return nil
}
