// Tests for the persisted id mapping.

package idmap

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notion-ids.json")

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(path); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		m, err := LoadOrEmpty(path)
		if err != nil {
			t.Fatalf("LoadOrEmpty failed: %v", err)
		}
		if m.Len() != 0 {
			t.Errorf("expected empty mapping, got %d entries", m.Len())
		}
	})

	t.Run("round trip keeps order", func(t *testing.T) {
		m := New()
		m.Set("Zebra", "db-z")
		m.Set("Apple", "db-a")
		m.Set("Mango", "db-m")
		m.Set("Zebra", "db-z2")
		if err := m.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		var keys []string
		for name := range got.All() {
			keys = append(keys, name)
		}
		if s := strings.Join(keys, ","); s != "Zebra,Apple,Mango" {
			t.Errorf("expected Zebra,Apple,Mango, got %s", s)
		}
		if id, _ := got.Get("Zebra"); id != "db-z2" {
			t.Errorf("expected db-z2, got %q", id)
		}
	})

	t.Run("file format", func(t *testing.T) {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		want := "{\n  \"Zebra\": \"db-z2\",\n  \"Apple\": \"db-a\",\n  \"Mango\": \"db-m\"\n}\n"
		if string(data) != want {
			t.Errorf("unexpected file\n got: %q\nwant: %q", data, want)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(bad, []byte("[1, 2"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := Load(bad)
		if err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}
