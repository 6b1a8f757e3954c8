package database

import (
	"context"
	"fmt"
	"time"
)

// CrawlRun is the summary of one finished crawl.
type CrawlRun struct {
	ID         int64
	URL        string
	Depth      int
	Pages      int
	Failed     int
	Cached     int
	Images     int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the crawl took.
func (r CrawlRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordCrawl stores run and returns its ID.
func (cdb *CrawlDB) RecordCrawl(ctx context.Context, run *CrawlRun) (int64, error) {
	query := `
	INSERT INTO crawls (url, depth, pages, failed, cached, images, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := cdb.db.ExecContext(ctx, query,
		run.URL,
		run.Depth,
		run.Pages,
		run.Failed,
		run.Cached,
		run.Images,
		run.Error,
		run.StartedAt.UnixNano(),
		run.FinishedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record crawl: %w", err)
	}
	return result.LastInsertId()
}

// RecentCrawls returns up to limit runs, newest first.
func (cdb *CrawlDB) RecentCrawls(ctx context.Context, limit int) ([]CrawlRun, error) {
	query := `
	SELECT id, url, depth, pages, failed, cached, images, COALESCE(error, ''), started_at, finished_at
	FROM crawls
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`
	rows, err := cdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawls: %w", err)
	}
	defer rows.Close()

	runs := make([]CrawlRun, 0)
	for rows.Next() {
		var (
			run               CrawlRun
			started, finished int64
		)
		if err := rows.Scan(
			&run.ID,
			&run.URL,
			&run.Depth,
			&run.Pages,
			&run.Failed,
			&run.Cached,
			&run.Images,
			&run.Error,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		run.StartedAt = time.Unix(0, started)
		run.FinishedAt = time.Unix(0, finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
