package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	mediaDirName = "media"
	tmpDirName   = "tmp"
	maxKeyLength = 255
)

// LocalStore keeps blobs as flat files under <root>/media.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at root. The root is fixed for the
// lifetime of the store.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{abs, filepath.Join(abs, mediaDirName), filepath.Join(abs, tmpDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
		}
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *LocalStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Put streams r into a temp file and renames it over key. Readers of the old
// content never see a partially written file.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return 0, fmt.Errorf("reader is required")
	}
	dst, err := s.pathFromKey(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDirName), "put-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: write %s: %w", ErrIO, key, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("%w: sync %s: %w", ErrIO, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: close %s: %w", ErrIO, key, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: rename %s: %w", ErrIO, key, err)
	}
	return n, nil
}

// Length returns the stored size of key.
func (s *LocalStore) Length(ctx context.Context, key string) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := s.readPath(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, statError(key, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return info.Size(), nil
}

// ReadRange opens key and returns a reader over bytes [start, end]. The
// caller must close it to release the file handle.
func (s *LocalStore) ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.readPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, statError(key, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, key, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if start < 0 || end < start || end >= info.Size() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %d-%d of %d", ErrRangeUnsatisfiable, start, end, info.Size())
	}

	return &sectionReadCloser{
		r: io.NewSectionReader(f, start, end-start+1),
		f: f,
	}, nil
}

// Delete removes key. Deleting an absent key succeeds.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %w", ErrIO, key, err)
	}
	return nil
}

// Keys lists every stored key in lexical order.
func (s *LocalStore) Keys(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	entries, err := os.ReadDir(filepath.Join(s.root, mediaDirName))
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrIO, err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || ValidateKey(entry.Name()) != nil {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// ValidateKey reports whether key is safe to use as a single file name.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLength {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if i == 0 && !isAlnum(c) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		if !isKeyByte(c) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func (s *LocalStore) pathFromKey(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, mediaDirName, key), nil
}

// readPath maps invalid keys to ErrNotFound; no such blob can exist.
func (s *LocalStore) readPath(key string) (string, error) {
	path, err := s.pathFromKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return path, nil
}

func statError(key string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("%w: open %s: %w", ErrIO, key, err)
}

type sectionReadCloser struct {
	r *io.SectionReader
	f *os.File
}

func (s *sectionReadCloser) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	return n, err
}

func (s *sectionReadCloser) Close() error {
	return s.f.Close()
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
