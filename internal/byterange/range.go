// Package byterange resolves single-range HTTP Range headers against a known
// content length.
package byterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const unitPrefix = "bytes="

// ErrUnsatisfiable is returned for malformed, multi-range, or out-of-bounds
// Range headers.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// Range is a resolved inclusive byte interval [Start, End] of Total bytes.
type Range struct {
	Start int64
	End   int64
	Total int64
	// Partial is set when the request carried a Range header.
	Partial bool
	// Origin is set when the interval begins at byte 0.
	Origin bool
}

// Length returns the number of bytes in the interval.
func (r Range) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// ContentRange formats the interval as a Content-Range header value.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Total)
}

// UnsatisfiedContentRange formats the Content-Range value sent with 416.
func UnsatisfiedContentRange(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}

// Resolve validates header against total. An empty header selects the full
// content.
func Resolve(header string, total int64) (Range, error) {
	if total < 0 {
		return Range{}, fmt.Errorf("negative content length %d", total)
	}

	header = strings.TrimSpace(header)
	if header == "" {
		return Range{Start: 0, End: total - 1, Total: total, Origin: true}, nil
	}

	spec, ok := strings.CutPrefix(header, unitPrefix)
	if !ok {
		return Range{}, fmt.Errorf("%w: unsupported unit in %q", ErrUnsatisfiable, header)
	}
	if strings.Contains(spec, ",") {
		return Range{}, fmt.Errorf("%w: multiple ranges", ErrUnsatisfiable)
	}

	rawStart, rawEnd, ok := strings.Cut(spec, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: missing '-' in %q", ErrUnsatisfiable, header)
	}
	start, err := parseOffset(rawStart)
	if err != nil {
		return Range{}, fmt.Errorf("%w: start: %w", ErrUnsatisfiable, err)
	}

	end := total - 1
	if rawEnd != "" {
		end, err = parseOffset(rawEnd)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end: %w", ErrUnsatisfiable, err)
		}
		if start > end {
			return Range{}, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiable, start, end)
		}
	}
	if start >= total {
		return Range{}, fmt.Errorf("%w: start %d beyond length %d", ErrUnsatisfiable, start, total)
	}
	if end > total-1 {
		end = total - 1
	}

	return Range{
		Start:   start,
		End:     end,
		Total:   total,
		Partial: true,
		Origin:  start == 0,
	}, nil
}

func parseOffset(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty offset")
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, fmt.Errorf("invalid offset %q", raw)
		}
	}
	return strconv.ParseInt(raw, 10, 64)
}
