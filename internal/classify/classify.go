// Package classify decides where each discovered item belongs.
//
// Items tagged LOGO, GIF or FAVICON are redirected into the global special
// buckets regardless of the group that reported them. Every other item
// stays with its originating group. The input record is never modified:
// the redirected set is built first and the retained payloads are built
// from what is left.
package classify

import (
	"sort"

	"github.com/nao1215/imagefinder/internal/model"
)

// Placement is the result of classifying one record.
type Placement struct {
	// Groups holds the retained ordinary payloads keyed by group key.
	// Payloads left with no items are omitted.
	Groups map[string]model.GroupPayload

	// Special holds redirected items keyed by bucket name, then by
	// location URL.
	Special map[string]map[string]model.Item

	// Rejected lists group keys that collide with a reserved bucket name.
	// Their ordinary items were dropped.
	Rejected []string
}

// IsEmpty reports whether the placement carries no items at all.
func (p Placement) IsEmpty() bool {
	return len(p.Groups) == 0 && p.SpecialCount() == 0
}

// SpecialCount returns the number of redirected items.
func (p Placement) SpecialCount() int {
	n := 0
	for _, items := range p.Special {
		n += len(items)
	}
	return n
}

// ItemCount returns the number of items in the placement.
func (p Placement) ItemCount() int {
	n := p.SpecialCount()
	for _, g := range p.Groups {
		n += len(g.Images)
	}
	return n
}

// Classify places every item of rec.
func Classify(rec model.Record) Placement {
	p := Placement{
		Groups:  make(map[string]model.GroupPayload),
		Special: make(map[string]map[string]model.Item),
	}

	for _, key := range sortedKeys(rec) {
		payload := rec[key]
		redirected := redirect(payload.Images)
		for loc, item := range redirected {
			bucket, _ := item.Kind().Bucket()
			if p.Special[bucket] == nil {
				p.Special[bucket] = make(map[string]model.Item)
			}
			if _, seen := p.Special[bucket][loc]; !seen {
				p.Special[bucket][loc] = item
			}
		}

		retained := complement(payload.Images, redirected)
		if model.IsSpecialBucket(key) {
			if len(retained) > 0 {
				p.Rejected = append(p.Rejected, key)
			}
			continue
		}
		if len(retained) == 0 {
			continue
		}

		p.Groups[key] = model.GroupPayload{
			Level:  payload.Level,
			Images: retained,
		}
	}

	sort.Strings(p.Rejected)
	return p
}

// ClassifyAll classifies each record in order.
func ClassifyAll(records []model.Record) []Placement {
	out := make([]Placement, 0, len(records))
	for _, rec := range records {
		out = append(out, Classify(rec))
	}
	return out
}

// sortedKeys returns the group keys of rec in ascending order.
func sortedKeys(rec model.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// redirect returns the special items of images.
func redirect(images map[string]model.Item) map[string]model.Item {
	out := make(map[string]model.Item)
	for loc, item := range images {
		if item.Kind().IsSpecial() {
			item = item.Clone()
			item.LocationURL = loc
			out[loc] = item
		}
	}
	return out
}

// complement returns the items of images that are not in redirected.
func complement(images, redirected map[string]model.Item) map[string]model.Item {
	out := make(map[string]model.Item, len(images)-len(redirected))
	for loc, item := range images {
		if _, ok := redirected[loc]; ok {
			continue
		}
		item = item.Clone()
		item.LocationURL = loc
		out[loc] = item
	}
	return out
}
