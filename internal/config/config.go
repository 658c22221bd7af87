package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:7480"
	DefaultDBFileName  = ".streamify.db"
	DefaultDataDirName = ".streamify"
	DefaultLogLevel    = "debug"
	DefaultLogFormat   = "text"
	ConfigFileName     = ".streamify.toml"

	DefaultMediaMaxUploadBytes       int64 = 2 << 30
	DefaultMediaMultipartMemory      int64 = 32 << 20
	DefaultMediaContentType                = "video/mp4"
	DefaultMediaStreamChunkBytes           = 64 << 10
	DefaultMediaMaxConcurrentUploads       = 4

	configDirEnvKey          = "STREAMIFY_CONFIG_DIR"
	trustProjectConfigEnvKey = "STREAMIFY_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "STREAMIFY_API_URL"
	dbPathEnvKey             = "STREAMIFY_DB"
	dataDirEnvKey            = "STREAMIFY_DATA_DIR"
	allowedMediaTypesEnvKey  = "STREAMIFY_MEDIA_ALLOWED_TYPES"
)

// MediaConfig defines runtime configuration for upload and playback.
type MediaConfig struct {
	MaxUploadBytes       int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory   int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes    []string `toml:"allowed_media_types"`
	DefaultContentType   string   `toml:"default_content_type"`
	StreamChunkBytes     int      `toml:"stream_chunk_bytes"`
	MaxConcurrentUploads int      `toml:"max_concurrent_uploads"`
}

// TokenConfig is one accepted bearer token, stored as a bcrypt hash.
type TokenConfig struct {
	Owner string `toml:"owner"`
	Hash  string `toml:"hash"`
	Admin bool   `toml:"admin"`
}

// AuthConfig lists accepted bearer tokens. Empty disables authentication.
type AuthConfig struct {
	Tokens []TokenConfig `toml:"tokens"`
}

// Config defines runtime configuration for streamify.
type Config struct {
	APIURL                   string      `toml:"api_url"`
	DBPath                   string      `toml:"db_path"`
	DataDir                  string      `toml:"data_dir"`
	LogLevel                 string      `toml:"log_level"`
	LogFormat                string      `toml:"log_format"`
	Media                    MediaConfig `toml:"media"`
	Auth                     AuthConfig  `toml:"auth"`
	TrustedProjectConfigPath string      `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:    DefaultAPIURL,
		DBPath:    "",
		DataDir:   "",
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Media: MediaConfig{
			MaxUploadBytes:       DefaultMediaMaxUploadBytes,
			MultipartMaxMemory:   DefaultMediaMultipartMemory,
			AllowedMediaTypes:    nil,
			DefaultContentType:   DefaultMediaContentType,
			StreamChunkBytes:     DefaultMediaStreamChunkBytes,
			MaxConcurrentUploads: DefaultMediaMaxConcurrentUploads,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"data_dir",
	"log_level",
	"log_format",
	"media.max_upload_bytes",
	"media.multipart_max_memory",
	"media.allowed_media_types",
	"media.default_content_type",
	"media.stream_chunk_bytes",
	"media.max_concurrent_uploads",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "data_dir":
		return c.DataDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "media.max_upload_bytes":
		return strconv.FormatInt(c.Media.MaxUploadBytes, 10), nil
	case "media.multipart_max_memory":
		return strconv.FormatInt(c.Media.MultipartMaxMemory, 10), nil
	case "media.allowed_media_types":
		return strings.Join(c.Media.AllowedMediaTypes, ","), nil
	case "media.default_content_type":
		return c.Media.DefaultContentType, nil
	case "media.stream_chunk_bytes":
		return strconv.Itoa(c.Media.StreamChunkBytes), nil
	case "media.max_concurrent_uploads":
		return strconv.Itoa(c.Media.MaxConcurrentUploads), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// AuthEnabled reports whether any bearer token is configured.
func (c *Config) AuthEnabled() bool {
	return len(c.Auth.Tokens) > 0
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	return updateFile(path, func(data map[string]any) error {
		return setNestedKey(data, strings.Split(key, "."), parsedValue)
	})
}

// AddToken appends an [[auth.tokens]] entry to the TOML file at path.
func AddToken(path string, token TokenConfig) error {
	if strings.TrimSpace(token.Owner) == "" {
		return fmt.Errorf("token owner is required")
	}
	if strings.TrimSpace(token.Hash) == "" {
		return fmt.Errorf("token hash is required")
	}
	return updateFile(path, func(data map[string]any) error {
		authRaw, ok := data["auth"]
		if !ok {
			authRaw = map[string]any{}
			data["auth"] = authRaw
		}
		auth, ok := authRaw.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot add token: auth is not a table")
		}

		var tokens []map[string]any
		switch existing := auth["tokens"].(type) {
		case nil:
		case []map[string]any:
			tokens = existing
		default:
			return fmt.Errorf("cannot add token: auth.tokens is not an array of tables")
		}
		auth["tokens"] = append(tokens, map[string]any{
			"owner": token.Owner,
			"hash":  token.Hash,
			"admin": token.Admin,
		})
		return nil
	})
}

func updateFile(path string, mutate func(map[string]any) error) error {
	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := mutate(data); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dataDir := os.Getenv(dataDirEnvKey); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMediaTypesEnvKey)); raw != "" {
		cfg.Media.AllowedMediaTypes = splitCSV(raw)
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if cfg.DataDir == "" && cfg.DBPath != "" {
		cfg.DataDir = filepath.Join(filepath.Dir(cfg.DBPath), DefaultDataDirName, "blobs")
	}

	cfg.normalizeMediaDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "media.max_upload_bytes", "media.multipart_max_memory":
		parsed, err := humanize.ParseBytes(value)
		if err != nil || parsed == 0 || parsed > 1<<62 {
			return nil, fmt.Errorf("%s must be a positive size (e.g. 512MiB)", key)
		}
		return int64(parsed), nil
	case "media.stream_chunk_bytes":
		parsed, err := humanize.ParseBytes(value)
		if err != nil || parsed == 0 || parsed > 16<<20 {
			return nil, fmt.Errorf("%s must be a positive size up to 16MiB", key)
		}
		return int64(parsed), nil
	case "media.max_concurrent_uploads":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "media.allowed_media_types":
		return splitCSV(value), nil
	case "media.default_content_type":
		parsed, _, err := mime.ParseMediaType(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be a media type: %w", key, err)
		}
		return parsed, nil
	case "log_format":
		value = strings.ToLower(value)
		if value != "text" && value != "json" {
			return nil, fmt.Errorf("%s must be text or json", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeMediaDefaults() {
	if c.Media.MaxUploadBytes <= 0 {
		c.Media.MaxUploadBytes = DefaultMediaMaxUploadBytes
	}
	if c.Media.MultipartMaxMemory <= 0 {
		c.Media.MultipartMaxMemory = DefaultMediaMultipartMemory
	}
	if c.Media.StreamChunkBytes <= 0 {
		c.Media.StreamChunkBytes = DefaultMediaStreamChunkBytes
	}
	if c.Media.MaxConcurrentUploads <= 0 {
		c.Media.MaxConcurrentUploads = DefaultMediaMaxConcurrentUploads
	}
	if parsed, _, err := mime.ParseMediaType(strings.TrimSpace(c.Media.DefaultContentType)); err == nil {
		c.Media.DefaultContentType = strings.ToLower(parsed)
	} else {
		c.Media.DefaultContentType = DefaultMediaContentType
	}
	if strings.TrimSpace(c.LogFormat) == "" {
		c.LogFormat = DefaultLogFormat
	}
	c.Media.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Media.AllowedMediaTypes)
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
