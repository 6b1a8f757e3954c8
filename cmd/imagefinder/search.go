package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/imagefinder/internal/config"
	"github.com/nao1215/imagefinder/internal/render"
	"github.com/nao1215/imagefinder/internal/report"
	"github.com/nao1215/imagefinder/internal/search"
	"github.com/nao1215/imagefinder/internal/transport"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <url>",
		Short: "Find the images of a website",
		Long: `Search asks the crawl service for the images of a website and shows
them grouped by page while results stream in.

The search is aborted when the service sends nothing new for the inactivity
timeout (17.5 seconds by default).

Examples:
  # Images of one page
  imagefinder search https://example.com

  # Follow links two levels deep and redraw the tree on every update
  imagefinder search --recursive --depth 2 --live https://example.com

  # List the images of one category after the search
  imagefinder search --group logos https://example.com

  # Write a Markdown report
  imagefinder search --markdown -o report.md https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().StringP("server", "s", config.DefaultServer,
		"Base URL of the crawl service")
	cmd.Flags().BoolP("recursive", "r", false,
		"Follow same-site links")
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Recursion depth when --recursive is set")
	cmd.Flags().DurationP("timeout", "t", config.DefaultInactivityTimeout,
		"Abort when no new result arrives for this long")
	cmd.Flags().String("proxy", "",
		"Reach the crawl service through this proxy (e.g. socks5://127.0.0.1:9050)")

	cmd.Flags().StringP("group", "g", "",
		"List the images of this group (a page URL, logos, gifs or favicons)")
	cmd.Flags().Bool("live", false,
		"Redraw the whole tree on every update")
	cmd.Flags().IntP("width", "w", 0,
		"Truncate displayed URLs to this many characters (0: no limit)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// searchOptions are the presentation flags that do not belong to the
// configuration.
type searchOptions struct {
	group string
	live  bool
	width int
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildSearchConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var opts searchOptions
	if opts.group, err = cmd.Flags().GetString("group"); err != nil {
		return err
	}
	if opts.live, err = cmd.Flags().GetBool("live"); err != nil {
		return err
	}
	if opts.width, err = cmd.Flags().GetInt("width"); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSearch(ctx, cfg, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildSearchConfig layers the search flags over the loaded configuration.
func buildSearchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	overrides := []error{
		flagOverride(cmd, "server", &cfg.Server, f.GetString),
		flagOverride(cmd, "recursive", &cfg.Recursive, f.GetBool),
		flagOverride(cmd, "depth", &cfg.Depth, f.GetInt),
		flagOverride(cmd, "timeout", &cfg.InactivityTimeout, f.GetDuration),
		flagOverride(cmd, "proxy", &cfg.ProxyAddress, f.GetString),
	}
	if err := errors.Join(overrides...); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = f.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = f.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = f.GetString("output"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runSearch runs one search and writes the final report.
func runSearch(ctx context.Context, cfg *config.Config, opts searchOptions, target string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Verbose, false)

	req := search.Request{URL: target, Recursive: cfg.Recursive}
	if cfg.Recursive {
		req.Depth = cfg.Depth
	}
	if err := req.Validate(); err != nil {
		return err
	}
	for _, w := range req.Warnings() {
		fmt.Fprintf(stderr, "Warning: %s\n", w)
	}

	client, err := transport.NewClient(cfg.Server,
		transport.WithProxy(cfg.ProxyAddress),
		transport.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	view := render.NewView()
	view.Width = opts.width
	if opts.group != "" {
		view.Select(opts.group)
	}

	// Progress goes to stderr when the report itself is written to stdout
	// in a machine-readable format.
	progress := stdout
	if cfg.ReportFile == "" && (cfg.JSONReport || cfg.MarkdownReport) {
		progress = stderr
	}
	term := render.NewTerminal(progress,
		render.WithErrorOutput(stderr),
		render.WithView(view),
		render.WithBudget(cfg.InactivityTimeout),
		render.WithLive(opts.live),
	)

	session := search.NewSession(client, term,
		search.WithBudget(cfg.InactivityTimeout),
		search.WithLogger(logger),
	)

	started := time.Now()
	op, runErr := session.Run(ctx, req)
	if op == nil {
		return runErr
	}

	// Fatal outcomes discard the aggregate, so their report carries the
	// status and error only.
	rep := &report.Report{
		URL:         req.URL,
		Recursive:   req.Recursive,
		Depth:       req.Depth,
		Status:      op.State().String(),
		GeneratedAt: time.Now(),
		Elapsed:     time.Since(started),
		Results:     op.Result(),
	}
	if runErr != nil && !errors.Is(runErr, search.ErrNoResults) {
		rep.Error = runErr.Error()
	}

	logger.Debug("search finished",
		"state", op.State().String(),
		"records", op.Stats().Records,
		"discarded", op.Stats().Discarded,
		"merges", op.Stats().Merges,
	)

	if err := outputReport(cfg, rep, view, stdout); err != nil {
		return err
	}

	switch {
	case runErr == nil, errors.Is(runErr, search.ErrNoResults):
		return nil
	case errors.Is(runErr, context.Canceled):
		return runErr
	default:
		// The terminal has already printed the failure.
		return fmt.Errorf("%w: %w", errReported, runErr)
	}
}

// outputReport writes the report in the requested format. Without a format
// flag, stdout gets the group tree followed by a text summary and a file
// gets the full text report.
func outputReport(cfg *config.Config, rep *report.Report, view *render.View, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch {
	case cfg.JSONReport:
		_, err := report.NewJSONWriter(output, report.WithPrettyPrint()).Write(rep)
		return err
	case cfg.MarkdownReport:
		_, err := report.NewMarkdownWriter(output).Write(rep)
		return err
	}

	text := report.NewTextWriter(output, report.WithVerbose(cfg.Verbose))
	if cfg.ReportFile != "" {
		_, err := text.Write(rep)
		return err
	}

	if !rep.Results.IsEmpty() {
		fmt.Fprintln(output)
		if _, err := render.Render(output, rep.Results, view); err != nil {
			return err
		}
		fmt.Fprintln(output)
	}
	_, err := text.WriteSummary(report.NewSummary(rep))
	return err
}
