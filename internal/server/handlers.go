package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/imagefinder/internal/crawler"
	"github.com/nao1215/imagefinder/internal/database"
)

// InvalidURLMessage is the body of the 400 answer to a bad url parameter.
const InvalidURLMessage = "Invalid URL provided."

// NDJSONContentType is the media type of the crawl stream.
const NDJSONContentType = "application/x-ndjson"

// parseRequest reads the query of POST /main. Only "true" enables
// recursion, and an unparsable or negative recursiveLevels means 0.
func parseRequest(c *gin.Context, maxDepth int) (crawler.Request, error) {
	start, err := crawler.NormalizeStartURL(c.Query("url"))
	if err != nil {
		return crawler.Request{}, err
	}

	req := crawler.Request{
		URL:       start,
		Recursive: c.Query("recursive") == "true",
	}
	if req.Recursive {
		depth, err := strconv.Atoi(c.Query("recursiveLevels"))
		if err == nil && depth > 0 {
			req.Depth = depth
		}
		if maxDepth > 0 && req.Depth > maxDepth {
			req.Depth = maxDepth
		}
	}
	return req, nil
}

func (s *Server) handleMain(c *gin.Context) {
	req, err := parseRequest(c, s.maxDepth)
	if err != nil {
		s.logger.Debug("rejected crawl request", slog.String("url", c.Query("url")), slog.Any("error", err))
		c.String(http.StatusBadRequest, InvalidURLMessage)
		return
	}

	c.Header("Content-Type", NDJSONContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	startedAt := time.Now()
	stats, err := s.crawler.Crawl(ctx, req, func(page crawler.PageResult) error {
		line, err := json.Marshal(page.Record())
		if err != nil {
			return err
		}
		line = append(line, '\n')
		if _, err := c.Writer.Write(line); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, ctx.Err()) {
		s.logger.Warn("crawl ended with error", slog.String("url", req.URL), slog.Any("error", err))
	}

	s.recordRun(c, req, stats, err, startedAt)
}

// recordRun stores the crawl summary. It runs after the client may have
// gone away, so it does not use the request context.
func (s *Server) recordRun(c *gin.Context, req crawler.Request, stats crawler.Stats, crawlErr error, startedAt time.Time) {
	if s.runs == nil {
		return
	}

	run := &database.CrawlRun{
		URL:        req.URL,
		Depth:      req.Depth,
		Pages:      stats.Pages,
		Failed:     stats.Failed,
		Cached:     stats.Cached,
		Images:     stats.Images,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if crawlErr != nil {
		run.Error = crawlErr.Error()
	}

	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := s.runs.RecordCrawl(ctx, run); err != nil {
		s.logger.Warn("failed to record crawl", slog.String("url", req.URL), slog.Any("error", err))
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
