package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Level is the crawl depth a group belongs to, or a display label for a
// special bucket. On the wire it may be a number or a string.
//
// The zero value is level 0.
type Level struct {
	text    string
	label   bool
	num     float64
	numeric bool
}

// DepthLevel returns a numeric level for a crawl depth.
func DepthLevel(depth int) Level {
	return Level{
		text:    strconv.Itoa(depth),
		num:     float64(depth),
		numeric: true,
	}
}

// LabelLevel returns a string level. If the label itself looks like a
// number it still orders numerically.
func LabelLevel(label string) Level {
	l := Level{text: label, label: true}
	if f, err := strconv.ParseFloat(strings.TrimSpace(label), 64); err == nil && !math.IsNaN(f) {
		l.num = f
		l.numeric = true
	}
	return l
}

// Numeric returns the numeric value of the level for ordering.
// The second return value is false for non-numeric labels.
func (l Level) Numeric() (float64, bool) {
	if l.text == "" && !l.label {
		return 0, true
	}
	return l.num, l.numeric
}

// IsLabel reports whether the level arrived as a string.
func (l Level) IsLabel() bool {
	return l.label
}

// String returns the level as displayed ("2", "Logos").
func (l Level) String() string {
	if l.text == "" && !l.label {
		return "0"
	}
	return l.text
}

// Equal reports whether two levels denote the same level. Numeric levels
// compare by value whatever their wire type, so 1 and "1" are equal.
func (l Level) Equal(other Level) bool {
	ln, lok := l.Numeric()
	on, ook := other.Numeric()
	if lok || ook {
		return lok && ook && ln == on
	}
	return l.String() == other.String()
}

// Less orders levels: numeric levels first, ascending, then labels
// alphabetically.
func (l Level) Less(other Level) bool {
	ln, lok := l.Numeric()
	on, ook := other.Numeric()
	switch {
	case lok && ook:
		return ln < on
	case lok:
		return true
	case ook:
		return false
	default:
		return l.String() < other.String()
	}
}

// UnmarshalJSON accepts a JSON number, a JSON string, or null.
func (l *Level) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = Level{}
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*l = LabelLevel(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*l = Level{text: n.String(), num: f, numeric: true}
	return nil
}

// MarshalJSON writes numbers as numbers and labels as strings.
func (l Level) MarshalJSON() ([]byte, error) {
	if l.label {
		return json.Marshal(l.text)
	}
	return []byte(l.String()), nil
}
