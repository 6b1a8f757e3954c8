package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/imagefinder/internal/config"
	"github.com/nao1215/imagefinder/internal/crawler"
	"github.com/nao1215/imagefinder/internal/database"
	"github.com/nao1215/imagefinder/internal/metrics"
	"github.com/nao1215/imagefinder/internal/proxy"
	"github.com/nao1215/imagefinder/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl service",
		Long: `Serve starts the crawl service that "imagefinder search" talks to.

POST /main?url=<url>&recursive=<bool>&recursiveLevels=<n> crawls the site
breadth first and streams one NDJSON line per visited page. Metrics are
served on /metrics and a health check on /healthz.

Every crawl is recorded in a SQLite database in the cache directory. With
--cache, crawled pages are also reused until they expire.

Examples:
  # Listen on the default address
  imagefinder serve

  # Crawl through a local Tor SOCKS proxy
  imagefinder serve --tor-proxy 127.0.0.1:9050

  # Start an embedded Tor daemon and cache pages for ten minutes
  imagefinder serve --tor --cache --cache-ttl 10m`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"HTTP listen address")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages crawled per request")
	cmd.Flags().Int("max-depth", config.DefaultMaxDepth,
		"Maximum recursion depth a client may request (0: no limit)")
	cmd.Flags().Int("workers", config.DefaultWorkers,
		"Number of pages fetched concurrently")
	cmd.Flags().Duration("crawl-delay", config.DefaultCrawlDelay,
		"Smallest delay between requests to a site")
	cmd.Flags().Duration("max-crawl-delay", config.DefaultMaxCrawlDelay,
		"Largest adaptive delay between requests to a site")
	cmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout,
		"Timeout of one page fetch")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent to crawled sites")
	cmd.Flags().StringSlice("allowed-origin", nil,
		"Enable CORS for this browser origin (repeatable, \"*\" for any)")

	cmd.Flags().Bool("cache", false,
		"Reuse crawled pages until they expire")
	cmd.Flags().String("cache-dir", config.XDGCacheDir(),
		"Directory of the crawl database")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"How long a cached page is reused")

	cmd.Flags().Bool("tor", false,
		"Crawl through an embedded Tor daemon")
	cmd.Flags().String("tor-proxy", "",
		"Crawl through an external SOCKS5 proxy (e.g. 127.0.0.1:9050)")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Serve.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, logJSON)
	slog.SetDefault(logger)
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig layers the serve flags over the loaded configuration.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	s := &cfg.Serve
	overrides := []error{
		flagOverride(cmd, "listen", &s.ListenAddress, f.GetString),
		flagOverride(cmd, "max-pages", &s.MaxPages, f.GetInt),
		flagOverride(cmd, "max-depth", &s.MaxDepth, f.GetInt),
		flagOverride(cmd, "workers", &s.Workers, f.GetInt),
		flagOverride(cmd, "crawl-delay", &s.CrawlDelay, f.GetDuration),
		flagOverride(cmd, "max-crawl-delay", &s.MaxCrawlDelay, f.GetDuration),
		flagOverride(cmd, "fetch-timeout", &s.FetchTimeout, f.GetDuration),
		flagOverride(cmd, "user-agent", &s.UserAgent, f.GetString),
		flagOverride(cmd, "allowed-origin", &s.AllowedOrigins, f.GetStringSlice),
		flagOverride(cmd, "cache", &s.Cache, f.GetBool),
		flagOverride(cmd, "cache-dir", &s.CacheDir, f.GetString),
		flagOverride(cmd, "cache-ttl", &s.CacheTTL, f.GetDuration),
		flagOverride(cmd, "tor", &s.Tor, f.GetBool),
		flagOverride(cmd, "tor-proxy", &s.TorProxyAddress, f.GetString),
		flagOverride(cmd, "tor-timeout", &s.TorStartupTimeout, f.GetDuration),
	}
	if err := errors.Join(overrides...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe wires the crawl service together and serves until ctx ends.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sc := cfg.Serve

	egress, err := proxy.Open(ctx, sc, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare egress: %w", err)
	}
	defer func() {
		if err := egress.Close(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}()

	opts := database.DefaultOptions()
	opts.TTL = sc.CacheTTL
	db, err := database.Open(sc.CacheDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", db.Path(), "cache", sc.Cache)

	m := metrics.New()

	fetcher := crawler.NewFetcher(
		crawler.WithHTTPClient(egress.HTTPClient()),
		crawler.WithTimeout(sc.FetchTimeout),
		crawler.WithUserAgent(sc.UserAgent),
		crawler.WithMaxBodySize(sc.MaxBodySize),
		crawler.WithSiteHeaders(&cfg.Sites),
		crawler.WithFetchLogger(logger),
	)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxPages(sc.MaxPages),
		crawler.WithWorkers(sc.Workers),
		crawler.WithDelayBounds(sc.CrawlDelay, sc.MaxCrawlDelay),
		crawler.WithSites(&cfg.Sites),
		crawler.WithMetrics(m),
		crawler.WithLogger(logger),
	}
	if sc.Cache {
		spiderOpts = append(spiderOpts, crawler.WithCache(db))
	}
	spider := crawler.NewSpider(fetcher, spiderOpts...)

	srv := server.New(spider,
		server.WithRunRecorder(db),
		server.WithMetrics(m),
		server.WithLogger(logger),
		server.WithMaxDepth(sc.MaxDepth),
		server.WithAllowedOrigins(sc.AllowedOrigins...),
	)
	return srv.ListenAndServe(ctx, sc.ListenAddress)
}
