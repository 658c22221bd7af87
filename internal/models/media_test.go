package models

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeTitle(t *testing.T) {
	got, err := NormalizeTitle("  Holiday clip ")
	if err != nil {
		t.Fatalf("normalize title: %v", err)
	}
	if got != "Holiday clip" {
		t.Fatalf("expected trimmed title, got %q", got)
	}

	if _, err := NormalizeTitle("   "); err == nil {
		t.Fatal("expected empty title error")
	}
	if _, err := NormalizeTitle(strings.Repeat("x", MaxTitleLength+1)); err == nil {
		t.Fatal("expected long title error")
	}
}

func TestNormalizeDescription(t *testing.T) {
	got, err := NormalizeDescription("")
	if err != nil || got != "" {
		t.Fatalf("expected empty description to be valid, got %q, %v", got, err)
	}
	if _, err := NormalizeDescription(strings.Repeat("x", MaxDescriptionLength+1)); err == nil {
		t.Fatal("expected long description error")
	}
}

func TestParseContentTypeSource(t *testing.T) {
	got, err := ParseContentTypeSource(" SNIFFED ")
	if err != nil {
		t.Fatalf("parse source: %v", err)
	}
	if got != ContentTypeSourceSniffed {
		t.Fatalf("expected %q, got %q", ContentTypeSourceSniffed, got)
	}
	if _, err := ParseContentTypeSource("guessed"); err == nil {
		t.Fatal("expected invalid source error")
	}
}

func TestMediaBlob(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := Media{StorageKey: "k", SizeBytes: 42, ContentType: "video/webm", CreatedAt: created}
	blob := m.Blob()
	if blob.StorageKey != "k" || blob.TotalLength != 42 || blob.ContentType != "video/webm" || !blob.CreatedAt.Equal(created) {
		t.Fatalf("unexpected descriptor %+v", blob)
	}
}
