package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned when a record line is valid JSON but not an object.
var ErrNotObject = errors.New("record is not a JSON object")

// GroupPayload is the wire form of one group inside a record.
type GroupPayload struct {
	// Level is the crawl depth (or label) of the group.
	Level Level

	// Images maps location URL to item.
	Images map[string]Item
}

// UnmarshalJSON decodes a group payload.
//
// "images" is normally an object keyed by location URL. An array of item
// objects is also accepted; each entry is then keyed by its imageUrl and
// entries without one are skipped.
func (p *GroupPayload) UnmarshalJSON(data []byte) error {
	var aux struct {
		Level  Level           `json:"level"`
		Images json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	out := GroupPayload{
		Level:  aux.Level,
		Images: make(map[string]Item),
	}

	raw := bytes.TrimSpace(aux.Images)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		var list []Item
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		for _, item := range list {
			if item.ImageURL == "" {
				continue
			}
			item.LocationURL = item.ImageURL
			out.Images[item.LocationURL] = item
		}
	default:
		var byURL map[string]Item
		if err := json.Unmarshal(raw, &byURL); err != nil {
			return err
		}
		for loc, item := range byURL {
			item.LocationURL = loc
			out.Images[loc] = item
		}
	}

	*p = out
	return nil
}

// MarshalJSON encodes the payload with images as an object keyed by
// location URL.
func (p GroupPayload) MarshalJSON() ([]byte, error) {
	images := p.Images
	if images == nil {
		images = map[string]Item{}
	}
	return json.Marshal(struct {
		Level  Level           `json:"level"`
		Images map[string]Item `json:"images"`
	}{
		Level:  p.Level,
		Images: images,
	})
}

// Record is one decoded line of the result stream. A single line may carry
// updates for several groups.
type Record map[string]GroupPayload

// ParseRecord decodes one line into a Record. The line must be a JSON object.
func ParseRecord(line []byte) (Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

// ItemCount returns the number of items across all payloads of the record.
func (r Record) ItemCount() int {
	n := 0
	for _, p := range r {
		n += len(p.Images)
	}
	return n
}
