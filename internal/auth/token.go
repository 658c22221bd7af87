package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/crypto/bcrypt"
)

const (
	minTokenLength = 16
	maxTokenLength = 72
	maxOwnerLength = 64
	tokenBytes     = 24

	// AnonymousOwner is the identity used when authentication is disabled
	// and the caller names nobody.
	AnonymousOwner = "anonymous"
)

var ownerPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._@-]*[a-z0-9])?$`)

// NormalizeOwner returns a canonical lowercase owner identity.
func NormalizeOwner(raw string) (string, error) {
	owner := strings.TrimSpace(strings.ToLower(raw))
	if owner == "" {
		return "", fmt.Errorf("owner is required")
	}
	if len(owner) > maxOwnerLength {
		return "", fmt.Errorf("owner too long")
	}
	if !ownerPattern.MatchString(owner) {
		return "", fmt.Errorf("invalid owner")
	}
	return owner, nil
}

// GenerateToken returns a random bearer token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sfy_" + hex.EncodeToString(b), nil
}

// ValidateToken checks token length limits. bcrypt ignores bytes past 72.
func ValidateToken(token string) error {
	if len(token) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	if len(token) > maxTokenLength {
		return fmt.Errorf("token must be at most %d characters", maxTokenLength)
	}
	return nil
}

// HashToken hashes one plaintext token for the config file.
func HashToken(token string) (string, error) {
	if err := ValidateToken(token); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyToken verifies a plaintext token against a bcrypt hash.
func VerifyToken(tokenHash, candidate string) bool {
	if strings.TrimSpace(tokenHash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(candidate)) == nil
}

// Principal is an authenticated caller.
type Principal struct {
	Owner string
	Admin bool
}

// CanModify reports whether p may change media owned by ownerID.
func (p *Principal) CanModify(ownerID string) bool {
	if p == nil {
		return false
	}
	return p.Admin || p.Owner == ownerID
}

// Credential is one configured token hash.
type Credential struct {
	Owner string
	Hash  string
	Admin bool
}

// Authenticator resolves bearer tokens to principals. Successful lookups
// are cached by token digest so bcrypt runs once per token.
type Authenticator struct {
	credentials []Credential
	verified    *xsync.MapOf[string, Principal]
}

// NewAuthenticator validates owners and builds an authenticator.
func NewAuthenticator(credentials []Credential) (*Authenticator, error) {
	out := make([]Credential, 0, len(credentials))
	for _, cred := range credentials {
		owner, err := NormalizeOwner(cred.Owner)
		if err != nil {
			return nil, fmt.Errorf("token for %q: %w", cred.Owner, err)
		}
		if strings.TrimSpace(cred.Hash) == "" {
			return nil, fmt.Errorf("token for %q: hash is required", owner)
		}
		out = append(out, Credential{Owner: owner, Hash: cred.Hash, Admin: cred.Admin})
	}
	return &Authenticator{credentials: out, verified: xsync.NewMapOf[string, Principal]()}, nil
}

// Enabled reports whether any credential is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.credentials) > 0
}

// Authenticate returns the principal for token, or false.
func (a *Authenticator) Authenticate(token string) (*Principal, bool) {
	if !a.Enabled() || token == "" || len(token) > maxTokenLength {
		return nil, false
	}

	sum := sha256.Sum256([]byte(token))
	digest := hex.EncodeToString(sum[:])
	if p, ok := a.verified.Load(digest); ok {
		return &p, true
	}

	for _, cred := range a.credentials {
		if VerifyToken(cred.Hash, token) {
			p := Principal{Owner: cred.Owner, Admin: cred.Admin}
			a.verified.Store(digest, p)
			return &p, true
		}
	}
	return nil, false
}

type principalContextKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}
