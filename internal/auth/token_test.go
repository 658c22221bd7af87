package auth

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNormalizeOwner(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "valid", raw: "Alice.Smith", want: "alice.smith"},
		{name: "trim", raw: "  a-user  ", want: "a-user"},
		{name: "email like", raw: "me@example.com", want: "me@example.com"},
		{name: "invalid chars", raw: "bad space", wantErr: true},
		{name: "trailing dot", raw: "alice.", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "too long", raw: strings.Repeat("a", maxOwnerLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOwner(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("NormalizeOwner(%q)=%q want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHashAndVerifyToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if !VerifyToken(hash, token) {
		t.Fatal("expected token to verify")
	}
	if VerifyToken(hash, "wrong-token-value") {
		t.Fatal("expected wrong token to fail")
	}
	if VerifyToken("", token) {
		t.Fatal("expected empty hash to fail")
	}
	if _, err := HashToken("short"); err == nil {
		t.Fatal("expected short token to be rejected")
	}
}

func TestAuthenticator(t *testing.T) {
	const aliceToken = "alice-token-0123456789"
	const adminToken = "admin-token-0123456789"
	aliceHash, err := bcrypt.GenerateFromPassword([]byte(aliceToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	authn, err := NewAuthenticator([]Credential{
		{Owner: "Alice", Hash: string(aliceHash)},
		{Owner: "root", Hash: string(adminHash), Admin: true},
	})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if !authn.Enabled() {
		t.Fatal("expected authenticator to be enabled")
	}

	p, ok := authn.Authenticate(aliceToken)
	if !ok || p.Owner != "alice" || p.Admin {
		t.Fatalf("unexpected principal %+v, %v", p, ok)
	}
	p, ok = authn.Authenticate(aliceToken)
	if !ok || p.Owner != "alice" {
		t.Fatalf("expected cached principal, got %+v, %v", p, ok)
	}
	if _, ok := authn.Authenticate("nobody-token-0123456789"); ok {
		t.Fatal("expected unknown token to fail")
	}

	admin, ok := authn.Authenticate(adminToken)
	if !ok || !admin.Admin {
		t.Fatalf("expected admin principal, got %+v", admin)
	}
	if !admin.CanModify("alice") {
		t.Fatal("expected admin to modify anyone's media")
	}
	if p.CanModify("bob") {
		t.Fatal("expected alice to be denied on bob's media")
	}
	if !p.CanModify("alice") {
		t.Fatal("expected alice to modify her own media")
	}
}

func TestNewAuthenticatorRejectsBadOwner(t *testing.T) {
	if _, err := NewAuthenticator([]Credential{{Owner: "bad owner", Hash: "x"}}); err == nil {
		t.Fatal("expected invalid owner error")
	}
	if _, err := NewAuthenticator([]Credential{{Owner: "alice", Hash: " "}}); err == nil {
		t.Fatal("expected missing hash error")
	}
	empty, err := NewAuthenticator(nil)
	if err != nil {
		t.Fatalf("empty authenticator: %v", err)
	}
	if empty.Enabled() {
		t.Fatal("expected empty authenticator to be disabled")
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("expected no principal")
	}
	ctx = WithPrincipal(ctx, &Principal{Owner: "alice"})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Owner != "alice" {
		t.Fatalf("unexpected principal %+v", p)
	}
}
