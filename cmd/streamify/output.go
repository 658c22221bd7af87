package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"streamify/internal/api"
	"streamify/internal/format"
)

// outputFormatter is nil for text output.
var outputFormatter format.Formatter

// writeOutput renders payload with the selected structured formatter, or
// falls back to text.
func writeOutput(payload any, text func() error) error {
	if outputFormatter != nil {
		return outputFormatter.Write(os.Stdout, payload)
	}
	return text()
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeMediaList(items []api.MediaResponse) error {
	if len(items) == 0 {
		return writePlain("no media\n")
	}
	for _, item := range items {
		if err := writePlain("%s\n", formatMediaLine(item)); err != nil {
			return err
		}
	}
	return nil
}

func writeMediaDetail(media api.MediaResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", media.ID),
		fmt.Sprintf("title: %s", media.Title),
		fmt.Sprintf("owner: %s", media.OwnerID),
		fmt.Sprintf("content_type: %s", formatContentType(media)),
		fmt.Sprintf("size: %s (%d bytes)", humanize.IBytes(uint64(max(media.SizeBytes, 0))), media.SizeBytes),
		fmt.Sprintf("views: %s", humanize.Comma(media.Views)),
		fmt.Sprintf("created_at: %s (%s)", formatTime(media.CreatedAt), humanize.Time(media.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(media.UpdatedAt)),
		fmt.Sprintf("storage_key: %s", media.StorageKey),
	}
	if media.Filename != "" {
		lines = append(lines, fmt.Sprintf("filename: %s", media.Filename))
	}
	if media.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", media.Description))
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatMediaLine(media api.MediaResponse) string {
	return fmt.Sprintf("▶ %s %s [%s] %s, %s views",
		media.ID,
		media.Title,
		media.OwnerID,
		humanize.IBytes(uint64(max(media.SizeBytes, 0))),
		humanize.Comma(media.Views),
	)
}

func formatContentType(media api.MediaResponse) string {
	if media.ContentTypeSource == "" {
		return media.ContentType
	}
	return fmt.Sprintf("%s (%s)", media.ContentType, media.ContentTypeSource)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
