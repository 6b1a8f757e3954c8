package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/imagefinder/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(r *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	s := summary(r)
	w.writeHeader(md, s)
	w.writeSummary(md, s)
	w.writeGroups(md, r)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the header and counts in Markdown format.
func (w *MarkdownWriter) WriteSummary(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeSummary(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Image Finder Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + s.URL + "`"},
			{"Pages", strconv.Itoa(s.Pages)},
			{"Images", strconv.Itoa(s.Images)},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")
}

func statusText(s *Summary) string {
	if s.Failed() {
		return "❌ " + s.Status + " - " + s.Error
	}
	return "✅ " + s.Status
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *Summary) {
	md.H2("Image Kinds")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows: [][]string{
			{"Ordinary", strconv.Itoa(s.Ordinary)},
			{"Logos", strconv.Itoa(s.Logos)},
			{"GIFs", strconv.Itoa(s.GIFs)},
			{"Favicons", strconv.Itoa(s.Favicons)},
			{"**Total**", "**" + strconv.Itoa(s.Images) + "**"},
		},
	})
	md.PlainText("")

	if s.HasImages() {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of the kind distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Image Kind Distribution"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		count int
	}{
		{"Ordinary", s.Ordinary},
		{"Logos", s.Logos},
		{"GIFs", s.GIFs},
		{"Favicons", s.Favicons},
	}
	for _, sl := range slices {
		if sl.count > 0 {
			chart.LabelAndIntValue(sl.label, uint64(sl.count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.Failed() && s.HasImages():
		md.Warningf("The search ended early (%s). %d image(s) were found before it stopped.", s.Error, s.Images)
	case s.Failed():
		md.Cautionf("The search failed: %s", s.Error)
	case !s.HasImages():
		md.Note("No images found.")
	default:
		md.Tip(fmt.Sprintf("%d image(s) found on %d page(s).", s.Images, s.Pages))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeGroups(md *markdown.Markdown, r *Report) {
	md.H2("Pages")
	md.PlainText("")

	ordinary := r.Results.OrdinaryGroups()
	if len(ordinary) == 0 {
		md.PlainText("No pages with images.")
		md.PlainText("")
	} else {
		rows := make([][]string, len(ordinary))
		for i, g := range ordinary {
			rows[i] = []string{g.Level.String(), truncateString(g.Key, 60), strconv.Itoa(g.Len())}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Level", "Page", "Images"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	specials := r.Results.SpecialGroups()
	if len(specials) == 0 {
		return
	}
	md.H2("Categories")
	md.PlainText("")
	for _, g := range specials {
		md.PlainTextf("### %s", model.BucketLabel(g.Key))
		md.PlainText("")
		urls := make([]string, 0, g.Len())
		for _, item := range sortedItems(g) {
			urls = append(urls, item.LocationURL)
		}
		md.BulletList(urls...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [imagefinder](https://github.com/nao1215/imagefinder)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
