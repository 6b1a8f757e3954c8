package model

import (
	"bytes"
	"encoding/json"
)

// Wire field names of an item.
const (
	fieldImageURL = "imageUrl"
	fieldType     = "type"
)

// Item is one discovered image reference.
//
// LocationURL is the identity key: two items with the same LocationURL are
// the same item. On the wire it is the key of the images mapping, so it is
// not part of the item's own JSON object.
type Item struct {
	// LocationURL is the dereferenceable address that identifies the item.
	LocationURL string `json:"-"`

	// ImageURL is the image address reported by the crawl service.
	// It usually equals LocationURL.
	ImageURL string `json:"imageUrl"`

	// Type is the raw category tag as received. Use Kind for placement.
	Type string `json:"type"`

	// Extra holds every other field of the wire object, untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// NewItem creates an item whose location and image URL are the same.
func NewItem(imageURL string, kind Kind) Item {
	return Item{
		LocationURL: imageURL,
		ImageURL:    imageURL,
		Type:        kind.String(),
	}
}

// Kind returns the parsed category of the item.
func (i Item) Kind() Kind {
	return ParseKind(i.Type)
}

// Equal reports whether two items carry exactly the same data.
func (i Item) Equal(other Item) bool {
	if i.LocationURL != other.LocationURL || i.ImageURL != other.ImageURL || i.Type != other.Type {
		return false
	}
	if len(i.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range i.Extra {
		ov, ok := other.Extra[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	out := i
	if i.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(i.Extra))
		for k, v := range i.Extra {
			cp := make(json.RawMessage, len(v))
			copy(cp, v)
			out.Extra[k] = cp
		}
	}
	return out
}

// UnmarshalJSON decodes an item object, keeping unknown fields in Extra.
// A non-string "type" is treated as an empty tag, which places the item as
// ordinary.
func (i *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Item
	if raw, ok := fields[fieldImageURL]; ok {
		_ = json.Unmarshal(raw, &out.ImageURL) //nolint:errcheck // non-string URL stays empty
		delete(fields, fieldImageURL)
	}
	if raw, ok := fields[fieldType]; ok {
		_ = json.Unmarshal(raw, &out.Type) //nolint:errcheck // non-string tag stays empty
		delete(fields, fieldType)
	}
	if len(fields) > 0 {
		out.Extra = fields
	}

	out.LocationURL = i.LocationURL
	*i = out
	return nil
}

// MarshalJSON encodes the item with its extra fields merged back in.
func (i Item) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(i.Extra)+2)
	for k, v := range i.Extra {
		fields[k] = v
	}

	imageURL, err := json.Marshal(i.ImageURL)
	if err != nil {
		return nil, err
	}
	fields[fieldImageURL] = imageURL

	tag, err := json.Marshal(i.Type)
	if err != nil {
		return nil, err
	}
	fields[fieldType] = tag

	return json.Marshal(fields)
}
