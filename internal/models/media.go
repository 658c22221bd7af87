package models

import (
	"fmt"
	"strings"
	"time"
)

// ContentTypeSource records how a media item's content type was determined.
type ContentTypeSource string

const (
	ContentTypeSourceDeclared ContentTypeSource = "declared"
	ContentTypeSourceSniffed  ContentTypeSource = "sniffed"
	ContentTypeSourceDefault  ContentTypeSource = "default"
)

var validContentTypeSources = map[ContentTypeSource]struct{}{
	ContentTypeSourceDeclared: {},
	ContentTypeSourceSniffed:  {},
	ContentTypeSourceDefault:  {},
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// Media is a playable upload and the record of where its bytes live.
type Media struct {
	ID                string    `json:"id" yaml:"id"`
	OwnerID           string    `json:"owner_id" yaml:"owner_id"`
	Title             string    `json:"title" yaml:"title"`
	Description       string    `json:"description,omitempty" yaml:"description,omitempty"`
	Filename          string    `json:"filename,omitempty" yaml:"filename,omitempty"`
	StorageKey        string    `json:"storage_key" yaml:"storage_key"`
	ContentType       string    `json:"content_type" yaml:"content_type"`
	ContentTypeSource string    `json:"content_type_source,omitempty" yaml:"content_type_source,omitempty"`
	SizeBytes         int64     `json:"size_bytes" yaml:"size_bytes"`
	Views             int64     `json:"views" yaml:"views"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// Blob returns the storage facts recorded for m.
func (m Media) Blob() BlobDescriptor {
	return BlobDescriptor{
		StorageKey:  m.StorageKey,
		TotalLength: m.SizeBytes,
		ContentType: m.ContentType,
		CreatedAt:   m.CreatedAt,
	}
}

// NormalizeTitle trims and validates a media title.
func NormalizeTitle(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("title is required")
	}
	if len(value) > MaxTitleLength {
		return "", fmt.Errorf("title must be at most %d bytes", MaxTitleLength)
	}
	return value, nil
}

// NormalizeDescription trims and validates a media description.
func NormalizeDescription(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if len(value) > MaxDescriptionLength {
		return "", fmt.Errorf("description must be at most %d bytes", MaxDescriptionLength)
	}
	return value, nil
}

// ParseContentTypeSource validates a stored content type source.
func ParseContentTypeSource(raw string) (ContentTypeSource, error) {
	value := ContentTypeSource(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("content_type_source is required")
	}
	if _, ok := validContentTypeSources[value]; !ok {
		return "", fmt.Errorf("invalid content_type_source: %s", value)
	}
	return value, nil
}
