package model

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestParseRecord tests decoding of one stream line.
func TestParseRecord(t *testing.T) {
	t.Parallel()

	t.Run("decodes keyed images and keeps extra fields", func(t *testing.T) {
		t.Parallel()

		line := `{"a":{"level":1,"images":{"u1":{"imageUrl":"http://x/1.png","type":"ORDINARY","alt":"cat"}}}}`

		rec, err := ParseRecord([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		payload, ok := rec["a"]
		if !ok {
			t.Fatal("expected group a")
		}
		if n, _ := payload.Level.Numeric(); n != 1 {
			t.Errorf("expected level 1, got %v", n)
		}

		item, ok := payload.Images["u1"]
		if !ok {
			t.Fatal("expected item u1")
		}
		if item.LocationURL != "u1" {
			t.Errorf("expected location u1, got %q", item.LocationURL)
		}
		if item.ImageURL != "http://x/1.png" {
			t.Errorf("unexpected image URL %q", item.ImageURL)
		}
		if item.Kind() != KindOrdinary {
			t.Errorf("expected ORDINARY, got %s", item.Kind())
		}
		if string(item.Extra["alt"]) != `"cat"` {
			t.Errorf("expected extra alt field, got %q", item.Extra["alt"])
		}
	})

	t.Run("accepts images as an array", func(t *testing.T) {
		t.Parallel()

		line := `{"http://site/":{"level":0,"images":[{"imageUrl":"http://site/logo.png","type":"LOGO"},{"type":"IMAGE"}]}}`

		rec, err := ParseRecord([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		images := rec["http://site/"].Images
		if len(images) != 1 {
			t.Fatalf("expected 1 image, got %d", len(images))
		}
		item := images["http://site/logo.png"]
		if item.Kind() != KindLogo {
			t.Errorf("expected LOGO, got %s", item.Kind())
		}
	})

	t.Run("accepts a string level", func(t *testing.T) {
		t.Parallel()

		rec, err := ParseRecord([]byte(`{"logos":{"level":"Logos","images":{}}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		level := rec["logos"].Level
		if !level.IsLabel() || level.String() != "Logos" {
			t.Errorf("unexpected level %q", level.String())
		}
	})

	t.Run("rejects non-object lines", func(t *testing.T) {
		t.Parallel()

		for _, line := range []string{`[1,2]`, `"text"`, `42`, ``} {
			_, err := ParseRecord([]byte(line))
			if !errors.Is(err, ErrNotObject) {
				t.Errorf("ParseRecord(%q) error = %v, want ErrNotObject", line, err)
			}
		}
	})

	t.Run("rejects truncated lines", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseRecord([]byte(`{"a":{"level":1,"ima`)); err == nil {
			t.Error("expected error for truncated line")
		}
	})

	t.Run("counts items across payloads", func(t *testing.T) {
		t.Parallel()

		line := `{"a":{"level":1,"images":{"u1":{"imageUrl":"u1","type":"GIF"}}},"b":{"level":2,"images":{"u2":{},"u3":{}}}}`
		rec, err := ParseRecord([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ItemCount() != 3 {
			t.Errorf("expected 3 items, got %d", rec.ItemCount())
		}
	})
}

// TestItemJSON tests that extra fields survive re-encoding.
func TestItemJSON(t *testing.T) {
	t.Parallel()

	var item Item
	if err := json.Unmarshal([]byte(`{"imageUrl":"http://x/a.gif","type":"GIF","width":120}`), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["width"] != float64(120) {
		t.Errorf("expected width to survive, got %v", fields["width"])
	}
	if fields["type"] != "GIF" {
		t.Errorf("expected type GIF, got %v", fields["type"])
	}
}

// TestItemEqual tests item comparison including extra fields.
func TestItemEqual(t *testing.T) {
	t.Parallel()

	a := NewItem("http://x/1.png", KindOrdinary)
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("expected clone to be equal")
	}

	b.Extra = map[string]json.RawMessage{"alt": json.RawMessage(`"x"`)}
	if a.Equal(b) {
		t.Error("expected items with different extras to differ")
	}

	c := a
	c.Type = "LOGO"
	if a.Equal(c) {
		t.Error("expected items with different type to differ")
	}
}
