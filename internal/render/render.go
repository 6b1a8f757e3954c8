package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/model"
)

// Render writes the group tree of snap to w as seen through v.
//
// Ordinary groups are listed under their level header, levels in numeric
// order. Special buckets follow in their own section. When v has an active
// group that exists in snap, its images are listed last.
func Render(w io.Writer, snap aggregate.Snapshot, v *View) (int, error) {
	if v == nil {
		v = NewView()
	}

	var sb strings.Builder
	writeLevels(&sb, snap, v)
	writeSpecials(&sb, snap, v)
	writeActive(&sb, snap, v)

	return io.WriteString(w, sb.String())
}

func writeLevels(sb *strings.Builder, snap aggregate.Snapshot, v *View) {
	for _, level := range snap.Levels() {
		groups := snap.GroupsAt(level)
		marker := "+"
		if v.IsExpanded(level) {
			marker = "-"
		}
		fmt.Fprintf(sb, "%s %s (%s)\n", marker, LevelLabel(level), plural(len(groups), "item"))
		if !v.IsExpanded(level) {
			continue
		}
		for _, g := range groups {
			writeGroupLine(sb, g, v)
		}
	}
}

func writeSpecials(sb *strings.Builder, snap aggregate.Snapshot, v *View) {
	specials := snap.SpecialGroups()
	if len(specials) == 0 {
		return
	}
	sb.WriteString("Categories\n")
	for _, g := range specials {
		writeGroupLine(sb, g, v)
	}
}

func writeGroupLine(sb *strings.Builder, g *model.Group, v *View) {
	cursor := " "
	if g.Key == v.Active {
		cursor = ">"
	}
	name := g.Key
	if g.IsSpecial() {
		name = model.BucketLabel(g.Key)
	} else {
		name = truncate(name, v.Width)
	}
	fmt.Fprintf(sb, "  %s %s (%s)\n", cursor, name, plural(g.Len(), "image"))
}

func writeActive(sb *strings.Builder, snap aggregate.Snapshot, v *View) {
	if v.Active == "" {
		return
	}
	g, ok := snap.Group(v.Active)
	if !ok {
		return
	}

	title := g.Key
	if g.IsSpecial() {
		title = model.BucketLabel(g.Key)
	}
	fmt.Fprintf(sb, "\n%s\n", title)

	for _, item := range SortedItems(g) {
		fmt.Fprintf(sb, "  %s  %s\n", truncate(item.LocationURL, v.Width), KindLabel(item.Kind()))
	}
}

// SortedItems returns the items of g ordered by location URL.
func SortedItems(g *model.Group) []model.Item {
	out := make([]model.Item, 0, len(g.Items))
	for _, item := range g.Items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LocationURL < out[j].LocationURL
	})
	return out
}

// LevelLabel returns the header of a level: "Level 2" for numbers, the
// label itself otherwise.
func LevelLabel(level model.Level) string {
	if _, ok := level.Numeric(); ok {
		return "Level " + level.String()
	}
	return level.String()
}

// KindLabel returns the display name of a kind ("Logo", "Gif").
func KindLabel(kind model.Kind) string {
	return cases.Title(language.English).String(strings.ToLower(kind.String()))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
