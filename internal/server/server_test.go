package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"streamify/internal/api"
	"streamify/internal/auth"
	"streamify/internal/blobstore"
	"streamify/internal/store"
)

const (
	aliceToken = "sfy_alice_0123456789abcdef"
	bobToken   = "sfy_bob_0123456789abcdef"
	rootToken  = "sfy_root_0123456789abcdef"
)

type testEnv struct {
	srv     *Server
	store   *store.Store
	blobs   *blobstore.LocalStore
	handler http.Handler
}

func newTestEnv(t *testing.T, authn *auth.Authenticator, opts Options) testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil, authn, opts)
}

// newTestEnvWithStore lets tests wrap the real store. wrap may be nil.
func newTestEnvWithStore(t *testing.T, wrap func(*store.Store) store.MediaStore, authn *auth.Authenticator, opts Options) testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "media.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	blobs, err := blobstore.NewLocalStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}

	var mediaStore store.MediaStore = st
	if wrap != nil {
		mediaStore = wrap(st)
	}
	if opts.Media.StreamChunkBytes == 0 {
		opts.Media.StreamChunkBytes = 256
	}
	srv := New("127.0.0.1:0", mediaStore, blobs, authn, opts, nil)
	return testEnv{srv: srv, store: st, blobs: blobs, handler: srv.Handler()}
}

func newTestAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()
	creds := []auth.Credential{}
	for _, entry := range []struct {
		owner, token string
		admin        bool
	}{
		{"alice", aliceToken, false},
		{"bob", bobToken, false},
		{"root", rootToken, true},
	} {
		hash, err := auth.HashToken(entry.token)
		if err != nil {
			t.Fatalf("hash token: %v", err)
		}
		creds = append(creds, auth.Credential{Owner: entry.owner, Hash: hash, Admin: entry.admin})
	}
	authn, err := auth.NewAuthenticator(creds)
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return authn
}

type uploadOptions struct {
	title       string
	filename    string
	contentType string
	token       string
	owner       string
}

func uploadRequest(t *testing.T, content []byte, opts uploadOptions) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if opts.title != "" {
		if err := mw.WriteField("title", opts.title); err != nil {
			t.Fatalf("write title: %v", err)
		}
	}
	filename := opts.filename
	if filename == "" {
		filename = "clip.mp4"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if opts.contentType != "" {
		header.Set("Content-Type", opts.contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setCaller(req, opts.token, opts.owner)
	return req
}

func setCaller(req *http.Request, token, owner string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e testEnv) upload(t *testing.T, content []byte, opts uploadOptions) api.MediaResponse {
	t.Helper()
	if opts.title == "" {
		opts.title = "Clip"
	}
	w := e.do(uploadRequest(t, content, opts))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.MediaResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

func (e testEnv) views(t *testing.T, id string) int64 {
	t.Helper()
	media, err := e.store.GetMedia(context.Background(), id)
	if err != nil || media == nil {
		t.Fatalf("get media %s: %v", id, err)
	}
	return media.Views
}

func decodeErrorResponse(t *testing.T, body io.Reader) api.ErrorResponse {
	t.Helper()
	var errResp api.ErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return errResp
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7480")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7480" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7480")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7480")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7480" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestWithAuth(t *testing.T) {
	authn := newTestAuthenticator(t)

	run := func(srv *Server, method, path, token, owner string) (*httptest.ResponseRecorder, *auth.Principal) {
		var seen *auth.Principal
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = auth.PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
		req := httptest.NewRequest(method, path, nil)
		setCaller(req, token, owner)
		w := httptest.NewRecorder()
		srv.withAuth(next).ServeHTTP(w, req)
		return w, seen
	}

	t.Run("denies missing auth on mutation", func(t *testing.T) {
		w, _ := run(&Server{auth: authn}, http.MethodDelete, "/v1/media/vd-ab12cd34", "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if errResp := decodeErrorResponse(t, w.Body); errResp.ErrorCode != ErrCodeUnauthorized {
			t.Fatalf("expected error_code %d, got %d", ErrCodeUnauthorized, errResp.ErrorCode)
		}
	})

	t.Run("allows anonymous reads", func(t *testing.T) {
		w, seen := run(&Server{auth: authn}, http.MethodGet, "/v1/media/vd-ab12cd34/stream", "", "")
		if w.Code != http.StatusNoContent || seen != nil {
			t.Fatalf("expected anonymous pass-through, got %d %+v", w.Code, seen)
		}
	})

	t.Run("admin reads need a token", func(t *testing.T) {
		w, _ := run(&Server{auth: authn}, http.MethodGet, "/v1/admin/orphans", "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		w, _ := run(&Server{auth: authn}, http.MethodGet, "/v1/media", "sfy_wrong_0123456789", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("resolves valid token", func(t *testing.T) {
		w, seen := run(&Server{auth: authn}, http.MethodPost, "/v1/media", aliceToken, "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if seen == nil || seen.Owner != "alice" || seen.Admin {
			t.Fatalf("unexpected principal %+v", seen)
		}
	})

	t.Run("disabled auth trusts owner header", func(t *testing.T) {
		w, seen := run(&Server{}, http.MethodPost, "/v1/media", "", "Carol")
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if seen == nil || seen.Owner != "carol" || !seen.Admin {
			t.Fatalf("unexpected principal %+v", seen)
		}
	})

	t.Run("disabled auth defaults to anonymous", func(t *testing.T) {
		_, seen := run(&Server{}, http.MethodPost, "/v1/media", "", "")
		if seen == nil || seen.Owner != auth.AnonymousOwner {
			t.Fatalf("unexpected principal %+v", seen)
		}
	})

	t.Run("disabled auth rejects malformed owner", func(t *testing.T) {
		w, _ := run(&Server{}, http.MethodPost, "/v1/media", "", "bad owner!")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestHealthAndInfo(t *testing.T) {
	env := newTestEnv(t, nil, Options{Version: "test"})

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d", w.Code)
	}
	var info api.InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Version != "test" || info.SchemaVersion < 1 || info.StorageRoot != env.blobs.Root() || info.AuthEnabled {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Serve(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve returned %v", err)
	}
}
