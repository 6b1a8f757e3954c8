package aggregate

import (
	"github.com/nao1215/imagefinder/internal/classify"
	"github.com/nao1215/imagefinder/internal/model"
)

// MergeResult describes what a merge changed.
type MergeResult struct {
	// Added counts items that were not in the store before.
	Added int

	// Updated counts existing items replaced by different data.
	Updated int

	// Created counts groups created by the merge, special buckets included.
	Created int

	// Relevelled counts existing groups whose level was refined.
	Relevelled int
}

// Changed reports whether the merge modified the store.
func (r MergeResult) Changed() bool {
	return r.Added > 0 || r.Updated > 0 || r.Created > 0 || r.Relevelled > 0
}

// Add accumulates another result into r.
func (r *MergeResult) Add(other MergeResult) {
	r.Added += other.Added
	r.Updated += other.Updated
	r.Created += other.Created
	r.Relevelled += other.Relevelled
}

// Store is the mutable aggregate of one operation.
type Store struct {
	groups map[string]*model.Group
	merges int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		groups: make(map[string]*model.Group),
	}
}

// Merge folds a placement into the store. It never fails and never removes
// an item. Merging an empty placement is a no-op.
func (s *Store) Merge(p classify.Placement) MergeResult {
	var res MergeResult
	if p.IsEmpty() {
		return res
	}
	s.merges++

	for key, payload := range p.Groups {
		if len(payload.Images) == 0 || model.IsSpecialBucket(key) {
			continue
		}
		res.Add(s.mergeOrdinary(key, payload))
	}

	for bucket, items := range p.Special {
		if len(items) == 0 {
			continue
		}
		res.Add(s.mergeSpecial(bucket, items))
	}

	return res
}

// MergeAll merges placements in order and returns the combined result.
func (s *Store) MergeAll(placements []classify.Placement) MergeResult {
	var res MergeResult
	for _, p := range placements {
		res.Add(s.Merge(p))
	}
	return res
}

func (s *Store) mergeOrdinary(key string, payload model.GroupPayload) MergeResult {
	var res MergeResult

	g, ok := s.groups[key]
	if !ok {
		g = model.NewGroup(key, payload.Level)
		s.groups[key] = g
		res.Created++
	} else if !g.Level.Equal(payload.Level) {
		g.Level = payload.Level
		res.Relevelled++
	}

	for loc, item := range payload.Images {
		item = item.Clone()
		item.LocationURL = loc

		old, exists := g.Items[loc]
		switch {
		case !exists:
			res.Added++
		case !old.Equal(item):
			res.Updated++
		default:
			continue
		}
		g.Items[loc] = item
	}

	return res
}

func (s *Store) mergeSpecial(bucket string, items map[string]model.Item) MergeResult {
	var res MergeResult

	g, ok := s.groups[bucket]
	if !ok {
		g = model.NewSpecialGroup(bucket)
		if g == nil {
			return res
		}
		s.groups[bucket] = g
		res.Created++
	}

	for loc, item := range items {
		item = item.Clone()
		item.LocationURL = loc

		old, exists := g.Items[loc]
		switch {
		case !exists:
			res.Added++
		case !old.Equal(item):
			res.Updated++
		default:
			continue
		}
		g.Items[loc] = item
	}

	return res
}

// Reset discards every group.
func (s *Store) Reset() {
	s.groups = make(map[string]*model.Group)
	s.merges = 0
}

// IsEmpty reports whether the store holds no items.
func (s *Store) IsEmpty() bool {
	return s.ItemCount() == 0
}

// ItemCount returns the total number of items across all groups.
func (s *Store) ItemCount() int {
	n := 0
	for _, g := range s.groups {
		n += g.Len()
	}
	return n
}

// GroupCount returns the number of groups, special buckets included.
func (s *Store) GroupCount() int {
	return len(s.groups)
}

// Merges returns how many non-empty placements were merged.
func (s *Store) Merges() int {
	return s.merges
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	groups := make(map[string]*model.Group, len(s.groups))
	for k, g := range s.groups {
		groups[k] = g.Clone()
	}
	return Snapshot{groups: groups, seq: s.merges}
}
