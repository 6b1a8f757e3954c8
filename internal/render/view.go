// Package render draws aggregate snapshots for a terminal.
//
// All presentation state lives in a View owned by the caller. Rendering
// never changes the snapshot and never changes the view.
package render

import (
	"github.com/nao1215/imagefinder/internal/model"
)

// View is the presentation state of the group tree.
type View struct {
	// Active is the key of the selected group whose images are listed
	// below the tree. Empty means no selection.
	Active string

	// ExpandAll shows the groups of every level regardless of Expanded.
	ExpandAll bool

	// Width truncates displayed URLs to at most Width runes.
	// Zero disables truncation.
	Width int

	expanded map[string]bool
}

// NewView returns a view with every level expanded.
func NewView() *View {
	return &View{ExpandAll: true}
}

// Select makes key the active group. Selecting the active group again
// clears the selection.
func (v *View) Select(key string) {
	if v.Active == key {
		v.Active = ""
		return
	}
	v.Active = key
}

// Expand shows the groups of level.
func (v *View) Expand(level model.Level) {
	if v.expanded == nil {
		v.expanded = make(map[string]bool)
	}
	v.expanded[level.String()] = true
}

// Collapse hides the groups of level. It turns ExpandAll off and keeps every
// other level that was shown.
func (v *View) Collapse(level model.Level, all []model.Level) {
	if v.ExpandAll {
		v.ExpandAll = false
		for _, l := range all {
			v.Expand(l)
		}
	}
	delete(v.expanded, level.String())
}

// Toggle flips the expansion state of level.
func (v *View) Toggle(level model.Level, all []model.Level) {
	if v.IsExpanded(level) {
		v.Collapse(level, all)
		return
	}
	v.Expand(level)
}

// IsExpanded reports whether the groups of level are shown.
func (v *View) IsExpanded(level model.Level) bool {
	if v.ExpandAll {
		return true
	}
	return v.expanded[level.String()]
}
