package aggregate

import (
	"encoding/json"
	"sort"

	"github.com/nao1215/imagefinder/internal/model"
)

// Snapshot is an immutable copy of a Store at one point in time.
// The zero value is an empty snapshot.
type Snapshot struct {
	groups map[string]*model.Group
	seq    int
}

// Seq returns the number of merges the store had applied when the snapshot
// was taken.
func (s Snapshot) Seq() int {
	return s.seq
}

// IsEmpty reports whether the snapshot holds no items.
func (s Snapshot) IsEmpty() bool {
	return s.ItemCount() == 0
}

// ItemCount returns the total number of items.
func (s Snapshot) ItemCount() int {
	n := 0
	for _, g := range s.groups {
		n += g.Len()
	}
	return n
}

// Group returns a copy of the group with the given key.
func (s Snapshot) Group(key string) (*model.Group, bool) {
	g, ok := s.groups[key]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// Groups returns copies of all groups. Ordinary groups come first, ordered
// by level then key; special buckets follow in their fixed order.
func (s Snapshot) Groups() []*model.Group {
	out := s.OrdinaryGroups()
	return append(out, s.SpecialGroups()...)
}

// OrdinaryGroups returns copies of the ordinary groups ordered by level
// then key.
func (s Snapshot) OrdinaryGroups() []*model.Group {
	out := make([]*model.Group, 0, len(s.groups))
	for _, g := range s.groups {
		if !g.IsSpecial() {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Level.Equal(out[j].Level) {
			return out[i].Level.Less(out[j].Level)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// SpecialGroups returns copies of the special buckets that exist, in
// display order.
func (s Snapshot) SpecialGroups() []*model.Group {
	var out []*model.Group
	for _, key := range model.SpecialBuckets() {
		if g, ok := s.groups[key]; ok {
			out = append(out, g.Clone())
		}
	}
	return out
}

// Levels returns the distinct levels of ordinary groups in order.
func (s Snapshot) Levels() []model.Level {
	var out []model.Level
	for _, g := range s.OrdinaryGroups() {
		if len(out) == 0 || !out[len(out)-1].Equal(g.Level) {
			out = append(out, g.Level)
		}
	}
	return out
}

// GroupsAt returns the ordinary groups at the given level, ordered by key.
func (s Snapshot) GroupsAt(level model.Level) []*model.Group {
	var out []*model.Group
	for _, g := range s.OrdinaryGroups() {
		if g.Level.Equal(level) {
			out = append(out, g)
		}
	}
	return out
}

// LocationURLs returns every distinct location URL in the snapshot, sorted.
func (s Snapshot) LocationURLs() []string {
	seen := make(map[string]struct{})
	for _, g := range s.groups {
		for loc := range g.Items {
			seen[loc] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for loc := range seen {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// KindCounts returns the number of items per kind. Items in special buckets
// count as the bucket's kind.
func (s Snapshot) KindCounts() map[model.Kind]int {
	out := make(map[model.Kind]int)
	for _, g := range s.groups {
		if g.IsSpecial() {
			out[g.Special] += g.Len()
			continue
		}
		for _, item := range g.Items {
			out[item.Kind()]++
		}
	}
	return out
}

// MarshalJSON encodes the snapshot in the wire record shape, one entry per
// group key.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]model.GroupPayload, len(s.groups))
	for k, g := range s.groups {
		out[k] = model.GroupPayload{Level: g.Level, Images: g.Items}
	}
	return json.Marshal(out)
}
