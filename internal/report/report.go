package report

import (
	"sort"
	"time"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/model"
)

// Report is the outcome of one search operation.
type Report struct {
	// URL is the searched site.
	URL string `json:"url"`

	// Recursive and Depth echo the request.
	Recursive bool `json:"recursive"`
	Depth     int  `json:"depth"`

	// Status is the final operation state ("completed", "timed_out").
	Status string `json:"status"`

	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generatedAt"`

	// Elapsed is the wall time of the search.
	Elapsed time.Duration `json:"elapsedNs"`

	// Results is the aggregate as last published. After a timeout this is
	// the partial result shown before the failure.
	Results aggregate.Snapshot `json:"results"`

	// Summary is filled by NewSummary when nil.
	Summary *Summary `json:"summary,omitempty"`
}

// Summary is the condensed view of a Report.
type Summary struct {
	URL      string `json:"url"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Pages    int    `json:"pages"`
	Images   int    `json:"images"`
	Logos    int    `json:"logos"`
	GIFs     int    `json:"gifs"`
	Favicons int    `json:"favicons"`
	Ordinary int    `json:"ordinary"`

	// PagesPerLevel maps a level label to its group count, in level order.
	PagesPerLevel []LevelCount `json:"pagesPerLevel"`
}

// LevelCount is the number of pages found at one crawl level.
type LevelCount struct {
	Level string `json:"level"`
	Pages int    `json:"pages"`
}

// NewSummary condenses r.
func NewSummary(r *Report) *Summary {
	snap := r.Results
	counts := snap.KindCounts()

	s := &Summary{
		URL:      r.URL,
		Status:   r.Status,
		Error:    r.Error,
		Pages:    len(snap.OrdinaryGroups()),
		Images:   snap.ItemCount(),
		Logos:    counts[model.KindLogo],
		GIFs:     counts[model.KindGIF],
		Favicons: counts[model.KindFavicon],
		Ordinary: counts[model.KindOrdinary],
	}
	for _, level := range snap.Levels() {
		s.PagesPerLevel = append(s.PagesPerLevel, LevelCount{
			Level: level.String(),
			Pages: len(snap.GroupsAt(level)),
		})
	}
	return s
}

// HasImages reports whether anything was found.
func (s *Summary) HasImages() bool {
	return s.Images > 0
}

// Failed reports whether the search ended with an error.
func (s *Summary) Failed() bool {
	return s.Error != ""
}

// summary returns r.Summary, building it when missing.
func summary(r *Report) *Summary {
	if r.Summary == nil {
		r.Summary = NewSummary(r)
	}
	return r.Summary
}

// sortedItems returns the items of g ordered by location URL.
func sortedItems(g *model.Group) []model.Item {
	out := make([]model.Item, 0, len(g.Items))
	for _, item := range g.Items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LocationURL < out[j].LocationURL
	})
	return out
}
