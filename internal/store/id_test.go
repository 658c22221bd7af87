package store

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("valid prefix", func(t *testing.T) {
		id, err := GenerateID("vd", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 11 { // "vd-" + 8 chars
			t.Fatalf("expected length 11, got %d: %s", len(id), id)
		}
		if id[:3] != "vd-" {
			t.Fatalf("expected prefix vd-, got %s", id[:3])
		}
	})

	t.Run("empty prefix", func(t *testing.T) {
		_, err := GenerateID("", nil)
		if err == nil {
			t.Fatal("expected error for empty prefix")
		}
	})

	t.Run("retries on collision", func(t *testing.T) {
		calls := 0
		exists := func(id string) (bool, error) {
			calls++
			return calls < 3, nil // first 2 calls collide
		}
		id, err := GenerateID("vd", exists)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == "" {
			t.Fatal("expected non-empty id")
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		exists := func(id string) (bool, error) {
			return true, nil // always collide
		}
		_, err := GenerateID("vd", exists)
		if err == nil {
			t.Fatal("expected error after max attempts")
		}
	})
}

func TestGenerateMediaID(t *testing.T) {
	id, err := GenerateMediaID(nil)
	if err != nil {
		t.Fatalf("generate media id: %v", err)
	}
	if len(id) != 11 || id[:3] != "vd-" {
		t.Fatalf("expected media id with vd- prefix, got %q", id)
	}
	for _, c := range id[3:] {
		if !strings.ContainsRune(base36Alphabet, c) {
			t.Fatalf("unexpected character %q in %q", c, id)
		}
	}
}
