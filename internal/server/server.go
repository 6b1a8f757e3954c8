package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nao1215/imagefinder/internal/crawler"
	"github.com/nao1215/imagefinder/internal/database"
	"github.com/nao1215/imagefinder/internal/metrics"
)

// shutdownTimeout bounds how long running crawls get to finish on shutdown.
const shutdownTimeout = 10 * time.Second

// Crawler runs one crawl and reports every visited page to emit.
type Crawler interface {
	Crawl(ctx context.Context, req crawler.Request, emit func(crawler.PageResult) error) (crawler.Stats, error)
}

// RunRecorder keeps a history of finished crawls.
type RunRecorder interface {
	RecordCrawl(ctx context.Context, run *database.CrawlRun) (int64, error)
}

// Server serves the crawl API.
type Server struct {
	router   *gin.Engine
	crawler  Crawler
	runs     RunRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	origins  []string
	maxDepth int
}

// Option configures a Server.
type Option func(*Server)

// WithRunRecorder stores a summary of every crawl.
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Server) {
		s.runs = r
	}
}

// WithMetrics records request and crawl metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowedOrigins enables CORS for browser clients served elsewhere.
// "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMaxDepth caps the recursion depth a client may ask for. Zero means
// no cap.
func WithMaxDepth(depth int) Option {
	return func(s *Server) {
		s.maxDepth = depth
	}
}

// New creates a Server that crawls with c.
func New(c Crawler, opts ...Option) *Server {
	s := &Server{
		crawler: c,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.Use(metricsMiddleware(s.metrics))
	if len(s.origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Content-Type", "Accept", "Origin"},
			ExposeHeaders: []string{"Content-Type"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.POST("/main", s.handleMain)
	router.GET("/healthz", handleHealth)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("crawl service listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down crawl service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
