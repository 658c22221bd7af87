package main

import (
	"context"
	"errors"
	"net"

	"streamify/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set STREAMIFY_API_TOKEN to a token added with: streamify token add")
		case "forbidden":
			lines = append(lines, "hint: only the owner or an admin token can change this media.")
		case "resource_exhausted":
			lines = append(lines, "hint: too many uploads in flight; retry shortly or raise media.max_concurrent_uploads.")
		case "range_not_satisfiable":
			lines = append(lines, "hint: use a single range like bytes=0-1023 within the media size.")
		case "unsupported_media_type":
			lines = append(lines, "hint: check media.allowed_media_types or pass --content-type.")
		}
		if apiErr.Status == 413 {
			lines = append(lines, "hint: the file exceeds media.max_upload_bytes on the server.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify STREAMIFY_API_URL points to a streamify server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase STREAMIFY_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a streamify server is running at STREAMIFY_API_URL.",
			"hint: start local server manually with: streamify srv",
			"hint: you can increase STREAMIFY_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
