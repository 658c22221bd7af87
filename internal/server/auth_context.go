package server

import (
	"fmt"
	"net/http"
	"strings"

	"streamify/internal/auth"
)

const ownerHeader = "X-Owner"

// withAuth attaches a principal to every request. With no tokens configured
// the caller names itself through X-Owner and may modify anything.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.auth.Enabled() {
			owner := auth.AnonymousOwner
			if raw := strings.TrimSpace(r.Header.Get(ownerHeader)); raw != "" {
				normalized, err := auth.NormalizeOwner(raw)
				if err != nil {
					s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("invalid %s header: %w", ownerHeader, err)))
					return
				}
				owner = normalized
			}
			ctx := auth.WithPrincipal(r.Context(), &auth.Principal{Owner: owner, Admin: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := bearerToken(r)
		if token == "" {
			if requiresPrincipal(r) {
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		principal, ok := s.auth.Authenticate(token)
		if !ok {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid token")))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func requiresPrincipal(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return strings.HasPrefix(r.URL.Path, "/v1/admin/")
	default:
		return true
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// principalOrUnauthorized returns the request principal or writes 401.
func (s *Server) principalOrUnauthorized(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return nil, false
	}
	return principal, true
}
