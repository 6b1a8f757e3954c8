package model

// Group is a named bucket of items held by the aggregate store: either the
// images found under one crawl origin, or one of the special buckets.
type Group struct {
	// Key is the stable identifier: an origin URL or a special bucket name.
	Key string `json:"-"`

	// Level is the crawl depth, or the display label of a special bucket.
	Level Level `json:"level"`

	// Special is the kind collected by a special bucket.
	// It is empty for ordinary groups.
	Special Kind `json:"-"`

	// Items maps location URL to item. Keys are unique by construction.
	Items map[string]Item `json:"images"`
}

// NewGroup creates an empty ordinary group.
func NewGroup(key string, level Level) *Group {
	return &Group{
		Key:   key,
		Level: level,
		Items: make(map[string]Item),
	}
}

// NewSpecialGroup creates an empty special bucket. It returns nil if key is
// not a reserved bucket name.
func NewSpecialGroup(key string) *Group {
	kind, ok := BucketKind(key)
	if !ok {
		return nil
	}
	return &Group{
		Key:     key,
		Level:   LabelLevel(BucketLabel(key)),
		Special: kind,
		Items:   make(map[string]Item),
	}
}

// IsSpecial reports whether the group is one of the special buckets.
func (g *Group) IsSpecial() bool {
	return g.Special != ""
}

// Len returns the number of items in the group.
func (g *Group) Len() int {
	return len(g.Items)
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	out := &Group{
		Key:     g.Key,
		Level:   g.Level,
		Special: g.Special,
		Items:   make(map[string]Item, len(g.Items)),
	}
	for k, v := range g.Items {
		out.Items[k] = v.Clone()
	}
	return out
}
