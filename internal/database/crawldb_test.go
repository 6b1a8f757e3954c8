package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/imagefinder/internal/crawler"
	"github.com/nao1215/imagefinder/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T, opts Options) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testPage(url string, fetchedAt time.Time) *crawler.Page {
	return &crawler.Page{
		URL: url,
		Images: []model.Item{
			model.NewItem("https://example.com/a.png", model.KindOrdinary),
			model.NewItem("https://example.com/logo.svg", model.KindLogo),
		},
		Links:     []string{"https://example.com/about"},
		FetchedAt: fetchedAt,
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.CreateIfNotExists = false
		if _, err := Open(filepath.Join(t.TempDir(), "missing"), opts); err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := db.Put(context.Background(), testPage("https://example.com/", time.Now())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = db.Close()

		opts := DefaultOptions()
		opts.CreateIfNotExists = false
		db, err = Open(dir, opts)
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		n, err := db.PageCount(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 page, got %d", n)
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists || !opts.EnableWAL {
		t.Error("expected creation and WAL to be enabled")
	}
	if opts.TTL != DefaultTTL {
		t.Errorf("expected TTL %v, got %v", DefaultTTL, opts.TTL)
	}
}

// TestPages tests storing and reading cached pages.
func TestPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("put and get page", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t, DefaultOptions())
		want := testPage("https://example.com/", time.Now())
		if err := db.Put(ctx, want); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, ok, err := db.Get(ctx, "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatal("expected page to be found")
		}
		if diff := cmp.Diff(want.Images, got.Images); diff != "" {
			t.Errorf("images mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want.Links, got.Links); diff != "" {
			t.Errorf("links mismatch (-want +got):\n%s", diff)
		}
		if !got.FetchedAt.Equal(want.FetchedAt) {
			t.Errorf("expected fetch time %v, got %v", want.FetchedAt, got.FetchedAt)
		}
	})

	t.Run("missing page is not found", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t, DefaultOptions())
		_, ok, err := db.Get(ctx, "https://example.com/none")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected page to be missing")
		}
	})

	t.Run("put replaces earlier entry", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t, DefaultOptions())
		if err := db.Put(ctx, testPage("https://example.com/", time.Now())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := db.Put(ctx, &crawler.Page{URL: "https://example.com/", FetchedAt: time.Now()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, ok, err := db.Get(ctx, "https://example.com/")
		if err != nil || !ok {
			t.Fatalf("expected page, got ok=%v err=%v", ok, err)
		}
		if len(got.Images) != 0 || len(got.Links) != 0 {
			t.Errorf("expected replaced page to be empty, got %+v", got)
		}
		n, err := db.PageCount(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 page, got %d", n)
		}
	})

	t.Run("stale page is not served", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.TTL = time.Minute
		db := setupTestDB(t, opts)

		if err := db.Put(ctx, testPage("https://example.com/old", time.Now().Add(-time.Hour))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := db.Put(ctx, testPage("https://example.com/new", time.Now())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, ok, _ := db.Get(ctx, "https://example.com/old"); ok {
			t.Error("expected stale page to be ignored")
		}
		if _, ok, _ := db.Get(ctx, "https://example.com/new"); !ok {
			t.Error("expected fresh page to be served")
		}

		removed, err := db.Purge(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 purged page, got %d", removed)
		}
	})

	t.Run("zero TTL never expires", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.TTL = 0
		db := setupTestDB(t, opts)

		if err := db.Put(ctx, testPage("https://example.com/", time.Now().Add(-24*time.Hour))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok, _ := db.Get(ctx, "https://example.com/"); !ok {
			t.Error("expected page to be served")
		}
		if n, _ := db.Purge(ctx); n != 0 {
			t.Errorf("expected nothing purged, got %d", n)
		}
	})

	t.Run("lists hosts", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t, DefaultOptions())
		for _, u := range []string{"https://b.example/", "https://A.example/x", "https://a.example/y"} {
			if err := db.Put(ctx, testPage(u, time.Now())); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		hosts, err := db.Hosts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"a.example", "b.example"}, hosts); diff != "" {
			t.Errorf("hosts mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestCrawlRuns tests crawl history.
func TestCrawlRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t, DefaultOptions())

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, u := range []string{"https://a.example/", "https://b.example/"} {
		run := &CrawlRun{
			URL:        u,
			Depth:      1,
			Pages:      3,
			Failed:     i,
			Images:     10,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 5*time.Second),
		}
		if _, err := db.RecordCrawl(ctx, run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	runs, err := db.RecentCrawls(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].URL != "https://b.example/" {
		t.Errorf("expected newest run first, got %s", runs[0].URL)
	}
	if runs[0].Duration() != 5*time.Second {
		t.Errorf("expected 5s duration, got %v", runs[0].Duration())
	}
	if runs[0].Failed != 1 || runs[1].Failed != 0 {
		t.Errorf("unexpected failure counts: %d, %d", runs[0].Failed, runs[1].Failed)
	}

	limited, err := db.RecentCrawls(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 run, got %d", len(limited))
	}
}
