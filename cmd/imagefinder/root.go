package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errReported marks errors whose message the presenter already printed.
var errReported = errors.New("already reported")

// NewRootCmd creates the root command for imagefinder.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imagefinder",
		Short: "Find the images of a website while it is being crawled",
		Long: `imagefinder sends a URL to a crawl service and aggregates the images it
streams back, grouped by the page they were found on and by crawl level.
Logos, GIFs and favicons are collected into their own categories.

The crawl service itself is started with "imagefinder serve".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .imagefinder in current or home directory)")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
