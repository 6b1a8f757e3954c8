package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/imagefinder/internal/model"
)

// TextWriter outputs plain text reports for terminal display.
type TextWriter struct {
	baseWriter

	// verbose lists every image under its group.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose lists every image under its group.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary followed by every group.
func (w *TextWriter) Write(r *Report) (int, error) {
	var sb strings.Builder
	w.writeSummary(&sb, summary(r))
	w.writeGroups(&sb, r)
	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs only the counts.
func (w *TextWriter) WriteSummary(s *Summary) (int, error) {
	var sb strings.Builder
	w.writeSummary(&sb, s)
	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeSummary(sb *strings.Builder, s *Summary) {
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("IMAGEFINDER REPORT\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(sb, "Site:     %s\n", s.URL)
	fmt.Fprintf(sb, "Status:   %s\n", s.Status)
	if s.Failed() {
		fmt.Fprintf(sb, "Error:    %s\n", s.Error)
	}
	fmt.Fprintf(sb, "Pages:    %d\n", s.Pages)
	fmt.Fprintf(sb, "Images:   %d\n", s.Images)
	sb.WriteString("\n")

	if !s.HasImages() {
		sb.WriteString("No images found.\n")
		return
	}

	fmt.Fprintf(sb, "  Ordinary  %d\n", s.Ordinary)
	fmt.Fprintf(sb, "  Logos     %d\n", s.Logos)
	fmt.Fprintf(sb, "  GIFs      %d\n", s.GIFs)
	fmt.Fprintf(sb, "  Favicons  %d\n", s.Favicons)
	sb.WriteString("\n")

	for _, lc := range s.PagesPerLevel {
		fmt.Fprintf(sb, "  Level %s: %d page(s)\n", lc.Level, lc.Pages)
	}
}

func (w *TextWriter) writeGroups(sb *strings.Builder, r *Report) {
	groups := r.Results.Groups()
	if len(groups) == 0 {
		return
	}

	sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
	for _, g := range groups {
		name := g.Key
		if g.IsSpecial() {
			name = model.BucketLabel(g.Key)
		}
		fmt.Fprintf(sb, "[%s] %s (%d)\n", g.Level.String(), name, g.Len())
		if !w.verbose {
			continue
		}
		for _, item := range sortedItems(g) {
			fmt.Fprintf(sb, "    %s\n", item.LocationURL)
		}
	}
}
