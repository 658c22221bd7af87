package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"streamify/internal/models"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := httpTimeoutFromEnv(); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "25")
		if got := httpTimeoutFromEnv(); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestDecodeErrorReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "media not found", Code: "not_found", ErrorCode: 2001})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetMedia(context.Background(), "vd-missing1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.ErrorCode != 2001 || apiErr.Code != "not_found" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Fatal("expected IsNotFound")
	}
}

func TestDecodeErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Ping(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
}

func TestUploadMediaSendsMultipart(t *testing.T) {
	t.Setenv(apiTokenEnvKey, "sfy_0123456789abcdef")
	content := bytes.Repeat([]byte("v"), 4096)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/media" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sfy_0123456789abcdef" {
			t.Errorf("unexpected authorization %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if !bytes.Equal(body, content) {
			t.Errorf("body mismatch: %d bytes", len(body))
		}
		if header.Filename != "clip.mp4" || header.Header.Get("Content-Type") != "video/mp4" {
			t.Errorf("unexpected part header %+v", header.Header)
		}
		if r.FormValue("title") != "Clip" {
			t.Errorf("unexpected title %q", r.FormValue("title"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(MediaResponse{Media: models.Media{ID: "vd-abc12345", Title: "Clip", SizeBytes: int64(len(body))}})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).UploadMedia(context.Background(), MediaUploadRequest{
		Title:       "Clip",
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
	}, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.ID != "vd-abc12345" || resp.SizeBytes != int64(len(content)) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestFetchSendsRangeAndOwner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=2-5" {
			t.Errorf("unexpected range %q", got)
		}
		if got := r.Header.Get("X-Owner"); got != "alice" {
			t.Errorf("unexpected owner %q", got)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Range", "bytes 2-5/10")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = io.WriteString(w, "2345")
	}))
	defer srv.Close()

	var out strings.Builder
	result, err := NewClient(srv.URL).WithOwner("alice").Fetch(context.Background(), "vd-abc12345", "bytes=2-5", &out)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.StatusCode != http.StatusPartialContent || result.ContentRange != "bytes 2-5/10" || result.Written != 4 {
		t.Fatalf("unexpected result %+v", result)
	}
	if out.String() != "2345" {
		t.Fatalf("unexpected body %q", out.String())
	}
}
