package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Media.MaxUploadBytes != DefaultMediaMaxUploadBytes {
		t.Fatalf("expected max upload default %d, got %d", DefaultMediaMaxUploadBytes, cfg.Media.MaxUploadBytes)
	}
	if cfg.Media.DefaultContentType != "video/mp4" {
		t.Fatalf("expected video/mp4 default content type, got %q", cfg.Media.DefaultContentType)
	}
	if cfg.Media.StreamChunkBytes != DefaultMediaStreamChunkBytes {
		t.Fatalf("expected chunk default %d, got %d", DefaultMediaStreamChunkBytes, cfg.Media.StreamChunkBytes)
	}
	if cfg.AuthEnabled() {
		t.Fatal("expected auth disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[media]
max_upload_bytes = 1048576
allowed_media_types = ["video/*", "audio/mpeg"]

[[auth.tokens]]
owner = "alice"
hash = "$2a$10$abc"
admin = true
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Media.MaxUploadBytes != 1048576 {
		t.Fatalf("expected max upload 1048576, got %d", cfg.Media.MaxUploadBytes)
	}
	if len(cfg.Media.AllowedMediaTypes) != 2 {
		t.Fatalf("expected 2 allowed media types, got %v", cfg.Media.AllowedMediaTypes)
	}
	if len(cfg.Auth.Tokens) != 1 || cfg.Auth.Tokens[0].Owner != "alice" || !cfg.Auth.Tokens[0].Admin {
		t.Fatalf("unexpected tokens %+v", cfg.Auth.Tokens)
	}
	if cfg.Media.StreamChunkBytes != DefaultMediaStreamChunkBytes {
		t.Fatalf("expected unset keys to keep defaults, got %d", cfg.Media.StreamChunkBytes)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/"+ConfigFileName, &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)
	t.Setenv(apiURLEnvKey, "http://127.0.0.1:9000")
	t.Setenv(dbPathEnvKey, filepath.Join(dir, "media.db"))
	t.Setenv(dataDirEnvKey, "")
	t.Setenv(allowedMediaTypesEnvKey, "Video/MP4, video/webm ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9000" {
		t.Fatalf("expected env api url, got %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(dir, "media.db") {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
	if cfg.DataDir != filepath.Join(dir, DefaultDataDirName, "blobs") {
		t.Fatalf("expected data dir next to db, got %q", cfg.DataDir)
	}
	if strings.Join(cfg.Media.AllowedMediaTypes, ",") != "video/mp4,video/webm" {
		t.Fatalf("expected normalized media types, got %v", cfg.Media.AllowedMediaTypes)
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range AllowedKeys() {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("auth.tokens") {
		t.Fatal("auth.tokens must not be settable as a plain key")
	}
	if IsAllowedKey("bogus") {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestGet(t *testing.T) {
	cfg := Default()
	cfg.Media.AllowedMediaTypes = []string{"video/mp4", "video/webm"}

	got, err := cfg.Get("media.allowed_media_types")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "video/mp4,video/webm" {
		t.Fatalf("unexpected value %q", got)
	}
	if _, err := cfg.Get("bogus"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	if err := SetKey(path, "media.max_upload_bytes", "512MiB"); err != nil {
		t.Fatalf("set max upload: %v", err)
	}
	if err := SetKey(path, "api_url", "http://example.test"); err != nil {
		t.Fatalf("set api url: %v", err)
	}
	if err := SetKey(path, "media.max_concurrent_uploads", "0"); err == nil {
		t.Fatal("expected non-positive concurrency to be rejected")
	}
	if err := SetKey(path, "log_format", "xml"); err == nil {
		t.Fatal("expected invalid log format to be rejected")
	}
	if err := SetKey(path, "bogus", "1"); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Media.MaxUploadBytes != 512<<20 {
		t.Fatalf("expected 512MiB, got %d", cfg.Media.MaxUploadBytes)
	}
	if cfg.APIURL != "http://example.test" {
		t.Fatalf("expected api url to persist, got %q", cfg.APIURL)
	}
}

func TestAddToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	if err := AddToken(path, TokenConfig{Owner: "alice", Hash: "h1"}); err != nil {
		t.Fatalf("add first token: %v", err)
	}
	if err := AddToken(path, TokenConfig{Owner: "root", Hash: "h2", Admin: true}); err != nil {
		t.Fatalf("add second token: %v", err)
	}
	if err := AddToken(path, TokenConfig{Owner: "", Hash: "h3"}); err == nil {
		t.Fatal("expected missing owner to be rejected")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cfg.Auth.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %+v", cfg.Auth.Tokens)
	}
	if cfg.Auth.Tokens[1].Owner != "root" || !cfg.Auth.Tokens[1].Admin {
		t.Fatalf("unexpected second token %+v", cfg.Auth.Tokens[1])
	}
	if !cfg.AuthEnabled() {
		t.Fatal("expected auth enabled once tokens exist")
	}
}
