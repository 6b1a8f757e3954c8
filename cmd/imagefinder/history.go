package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/imagefinder/internal/database"
)

// defaultHistoryLimit is how many crawls are listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List crawls run by the crawl service",
		Long: `History lists the crawls recorded by "imagefinder serve", newest first.

Examples:
  # The last 20 crawls
  imagefinder history

  # The last 5 crawls as JSON
  imagefinder history -n 5 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of crawls to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output crawl history in JSON format")
	cmd.Flags().String("cache-dir", "",
		"Directory of the crawl database (default: the configured cache directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openCrawlDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RecentCrawls(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if jsonOutput {
		return writeHistoryJSON(cmd.OutOrStdout(), runs)
	}
	writeHistory(cmd.OutOrStdout(), runs)
	return nil
}

// openCrawlDB opens the database of the crawl service, creating it when it
// does not exist yet.
func openCrawlDB(cmd *cobra.Command) (*database.CrawlDB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir := cfg.Serve.CacheDir
	if err := flagOverride(cmd, "cache-dir", &dir, cmd.Flags().GetString); err != nil {
		return nil, err
	}

	opts := database.DefaultOptions()
	opts.TTL = cfg.Serve.CacheTTL
	db, err := database.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func writeHistory(w io.Writer, runs []database.CrawlRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No crawls recorded.")
		fmt.Fprintln(w, "\nUse 'imagefinder serve' to run the crawl service.")
		return
	}

	fmt.Fprintf(w, "Crawl history (%d crawls):\n\n", len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-5s  %-6s  %-6s  %-9s  %s\n",
		"ID", "Date", "Depth", "Pages", "Images", "Duration", "URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 80))

	for _, run := range runs {
		url := run.URL
		if run.Error != "" {
			url += " (error: " + run.Error + ")"
		}
		fmt.Fprintf(w, "  %-6d  %-20s  %-5d  %-6d  %-6d  %-9s  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Depth,
			run.Pages,
			run.Images,
			run.Duration().Round(time.Millisecond),
			url,
		)
	}
}

// historyEntry is the JSON form of a crawl run.
type historyEntry struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Depth      int       `json:"depth"`
	Pages      int       `json:"pages"`
	Failed     int       `json:"failed"`
	Cached     int       `json:"cached"`
	Images     int       `json:"images"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func writeHistoryJSON(w io.Writer, runs []database.CrawlRun) error {
	entries := make([]historyEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, historyEntry{
			ID:         run.ID,
			URL:        run.URL,
			Depth:      run.Depth,
			Pages:      run.Pages,
			Failed:     run.Failed,
			Cached:     run.Cached,
			Images:     run.Images,
			Error:      run.Error,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}
