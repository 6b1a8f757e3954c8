package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/imagefinder/internal/crawler"
	"github.com/nao1215/imagefinder/internal/model"
)

// FileName is the name of the database file inside its directory.
const FileName = "crawl.db"

// DefaultTTL is how long a cached page stays fresh.
const DefaultTTL = time.Hour

// CrawlDB is a SQLite-backed crawler.Cache.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
	ttl    time.Duration
}

var _ crawler.Cache = (*CrawlDB)(nil)

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool

	// TTL is how long a cached page is served. Zero or less disables
	// expiry.
	TTL time.Duration
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		TTL:               DefaultTTL,
	}
}

// Open opens or creates a CrawlDB in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
		ttl:    opts.TTL,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per fetched page
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		host TEXT NOT NULL,
		images TEXT NOT NULL,
		links TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_host ON pages(host);
	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);

	-- One row per finished crawl
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		cached INTEGER NOT NULL,
		images INTEGER NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_started_at ON crawls(started_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// storedImage keeps the location URL, which the item's JSON form omits.
type storedImage struct {
	URL  string     `json:"url"`
	Item model.Item `json:"item"`
}

// Put stores page, replacing an earlier entry for the same URL.
func (cdb *CrawlDB) Put(ctx context.Context, page *crawler.Page) error {
	images := make([]storedImage, len(page.Images))
	for i, item := range page.Images {
		images[i] = storedImage{URL: item.LocationURL, Item: item}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("failed to serialize images: %w", err)
	}
	links := page.Links
	if links == nil {
		links = []string{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to serialize links: %w", err)
	}

	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	query := `
	INSERT INTO pages (url, host, images, links, fetched_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		host = excluded.host,
		images = excluded.images,
		links = excluded.links,
		fetched_at = excluded.fetched_at
	`
	_, err = cdb.db.ExecContext(ctx, query,
		page.URL,
		hostOf(page.URL),
		string(imagesJSON),
		string(linksJSON),
		fetchedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store page: %w", err)
	}
	return nil
}

// Get returns the stored page for pageURL if it is still fresh.
func (cdb *CrawlDB) Get(ctx context.Context, pageURL string) (*crawler.Page, bool, error) {
	query := `
	SELECT url, images, links, fetched_at
	FROM pages
	WHERE url = ?
	`

	var (
		page       crawler.Page
		imagesJSON string
		linksJSON  string
		fetchedAt  int64
	)
	err := cdb.db.QueryRowContext(ctx, query, pageURL).Scan(&page.URL, &imagesJSON, &linksJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get page: %w", err)
	}

	page.FetchedAt = time.Unix(0, fetchedAt)
	if cdb.ttl > 0 && time.Since(page.FetchedAt) > cdb.ttl {
		return nil, false, nil
	}

	var images []storedImage
	if err := json.Unmarshal([]byte(imagesJSON), &images); err != nil {
		return nil, false, fmt.Errorf("failed to parse images: %w", err)
	}
	page.Images = make([]model.Item, len(images))
	for i, img := range images {
		item := img.Item
		item.LocationURL = img.URL
		page.Images[i] = item
	}
	if err := json.Unmarshal([]byte(linksJSON), &page.Links); err != nil {
		return nil, false, fmt.Errorf("failed to parse links: %w", err)
	}

	return &page, true, nil
}

// Purge deletes pages older than the TTL and returns how many were removed.
func (cdb *CrawlDB) Purge(ctx context.Context) (int64, error) {
	if cdb.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-cdb.ttl).UnixNano()
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM pages WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge pages: %w", err)
	}
	return result.RowsAffected()
}

// PageCount returns the number of stored pages, fresh or not.
func (cdb *CrawlDB) PageCount(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// Hosts returns the distinct hosts with stored pages, sorted.
func (cdb *CrawlDB) Hosts(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT host FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	hosts := make([]string, 0)
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(hosts)
	return hosts, nil
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
