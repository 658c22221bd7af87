package blobstore

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultBasename replaces names that sanitize to nothing.
	DefaultBasename = "upload"

	maxBasenameLength = 96
	keySuffixBytes    = 8
)

var keyEntropy io.Reader = rand.Reader

// GenerateKey returns a fresh storage key of the form
// <ulid>-<hex>-<basename>. The ULID and hex suffix carry 144 random bits.
func GenerateKey(originalName string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), keyEntropy)

	suffix := make([]byte, keySuffixBytes)
	if _, err := io.ReadFull(keyEntropy, suffix); err != nil {
		panic(err)
	}

	return id.String() + "-" + hex.EncodeToString(suffix) + "-" + SanitizeBasename(originalName)
}

// SanitizeBasename keeps only the final path segment of name and maps it
// through an allow-list of [A-Za-z0-9._-].
func SanitizeBasename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isKeyByte(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	if len(out) > maxBasenameLength {
		out = out[len(out)-maxBasenameLength:]
		out = strings.TrimLeft(out, ".")
	}
	if strings.Trim(out, "_") == "" {
		return DefaultBasename
	}
	return out
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isKeyByte(c byte) bool {
	return isAlnum(c) || c == '.' || c == '_' || c == '-'
}
