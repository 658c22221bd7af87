// Package playback builds and writes full and partial content responses for
// stored media.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"streamify/internal/blobstore"
	"streamify/internal/byterange"
)

// DefaultChunkSize is the copy buffer size used when none is configured.
const DefaultChunkSize = 64 * 1024

// BlobReader is the subset of the blob store playback needs.
type BlobReader interface {
	ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}

// ViewRecorder receives origin notifications.
type ViewRecorder interface {
	MaybeIncrement(ctx context.Context, mediaID string, origin bool)
}

// Source describes the media being played.
type Source struct {
	MediaID     string
	StorageKey  string
	ContentType string
	TotalLength int64
}

// Response is a prepared playback response. Body is nil for HEAD responses
// and empty content.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	Range      byterange.Range

	chunkSize int
}

// Responder resolves ranges, opens blob intervals and records views.
type Responder struct {
	blobs     BlobReader
	views     ViewRecorder
	chunkSize int
}

// NewResponder creates a responder. views may be nil; chunkSize <= 0 selects
// DefaultChunkSize.
func NewResponder(blobs BlobReader, views ViewRecorder, chunkSize int) *Responder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Responder{blobs: blobs, views: views, chunkSize: chunkSize}
}

// Prepare resolves rangeHeader against src and opens the selected interval.
// A view is recorded for origin requests once the body is open.
func (p *Responder) Prepare(ctx context.Context, src Source, rangeHeader string) (*Response, error) {
	if p == nil || p.blobs == nil {
		return nil, fmt.Errorf("playback responder is not configured")
	}

	resp, err := p.Describe(src, rangeHeader)
	if err != nil {
		return nil, err
	}

	if resp.Range.Length() > 0 {
		body, err := p.blobs.ReadRange(ctx, src.StorageKey, resp.Range.Start, resp.Range.End)
		if err != nil {
			return nil, err
		}
		resp.Body = body
	}

	if p.views != nil {
		p.views.MaybeIncrement(ctx, src.MediaID, resp.Range.Origin)
	}
	return resp, nil
}

// Describe builds response framing without touching storage or counters.
func (p *Responder) Describe(src Source, rangeHeader string) (*Response, error) {
	r, err := byterange.Resolve(rangeHeader, src.TotalLength)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	contentType := src.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	header.Set("Accept-Ranges", "bytes")
	header.Set("Content-Length", strconv.FormatInt(r.Length(), 10))

	status := http.StatusOK
	if r.Partial {
		status = http.StatusPartialContent
		header.Set("Content-Range", r.ContentRange())
	}

	chunk := DefaultChunkSize
	if p != nil && p.chunkSize > 0 {
		chunk = p.chunkSize
	}
	return &Response{StatusCode: status, Header: header, Range: r, chunkSize: chunk}, nil
}

// Close releases the body's file handle.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Serve writes headers and streams the body in fixed-size chunks. It stops at
// the first write error, which usually means the client went away.
func (r *Response) Serve(w http.ResponseWriter) (int64, error) {
	defer r.Close()

	dst := w.Header()
	for key, values := range r.Header {
		dst[key] = values
	}
	w.WriteHeader(r.StatusCode)
	if r.Body == nil {
		return 0, nil
	}

	chunk := r.chunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunk)
	var written int64
	for {
		n, readErr := r.Body.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, &ClientGoneError{Err: err}
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if written < r.Range.Length() {
					return written, fmt.Errorf("%w: short read %d of %d bytes", blobstore.ErrIO, written, r.Range.Length())
				}
				return written, nil
			}
			return written, readErr
		}
	}
}

// ClientGoneError reports a failed write to the client.
type ClientGoneError struct {
	Err error
}

func (e *ClientGoneError) Error() string {
	return "client write failed: " + e.Err.Error()
}

func (e *ClientGoneError) Unwrap() error {
	return e.Err
}
