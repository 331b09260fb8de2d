package id

import (
	"encoding/base32"
	"strings"
	"testing"
)

func decodeID(t *testing.T, id string) []byte {
	t.Helper()
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(id))
	if err != nil {
		t.Fatalf("decode id %q: %v", id, err)
	}
	return raw
}

func TestNewID(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}

	t.Run("shape", func(t *testing.T) {
		if len(id) != 26 {
			t.Fatalf("id %q is %d characters, want 26", id, len(id))
		}
		if idx := strings.IndexFunc(id, func(r rune) bool {
			return (r < 'a' || r > 'z') && (r < '2' || r > '7')
		}); idx >= 0 {
			t.Fatalf("id %q has character %q outside the lowercase base32 alphabet", id, id[idx])
		}
	})

	t.Run("round trip", func(t *testing.T) {
		raw := decodeID(t, id)
		if len(raw) != 16 {
			t.Fatalf("decoded to %d bytes, want 16", len(raw))
		}
	})

	t.Run("uuid bits", func(t *testing.T) {
		raw := decodeID(t, id)
		if version := raw[6] >> 4; version != 4 {
			t.Errorf("uuid version = %d, want 4", version)
		}
		if variant := raw[8] & 0xC0; variant != 0x80 {
			t.Errorf("uuid variant = 0x%X, want 0x80", variant)
		}
	})
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool, 256)
	for i := 0; i < 256; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}
