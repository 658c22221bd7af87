package server

import (
	"fmt"
	"mime"
	"regexp"
	"strings"

	"streamify/internal/models"
)

var mediaIDRegex = regexp.MustCompile(`^vd-[0-9a-z]{8}$`)

func validateMediaID(id string) bool {
	return mediaIDRegex.MatchString(id)
}

func normalizeTitle(value string) (string, error) {
	title, err := models.NormalizeTitle(value)
	if err != nil {
		if strings.TrimSpace(value) == "" {
			return "", badRequestCode(err, ErrCodeMissingRequired)
		}
		return "", badRequestCode(err, ErrCodeInvalidTitle)
	}
	return title, nil
}

func normalizeDescription(value string) (string, error) {
	description, err := models.NormalizeDescription(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidArgument)
	}
	return description, nil
}

// normalizeMediaType strips parameters and lowercases a media type.
func normalizeMediaType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", badRequestCode(fmt.Errorf("invalid content type"), ErrCodeInvalidArgument)
	}
	return strings.ToLower(strings.TrimSpace(parsed)), nil
}

// mediaTypeAllowed matches mediaType against patterns. "video/*" matches any
// video subtype. An empty pattern list allows everything.
func mediaTypeAllowed(patterns []string, mediaType string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if pattern == mediaType {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(mediaType, prefix+"/") {
			return true
		}
	}
	return false
}
