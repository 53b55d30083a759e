package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"maintline/internal/domain"
	"maintline/internal/identity"
)

type sessionKey struct{}

func withSession(ctx context.Context, s identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFromContext(ctx context.Context) (identity.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(identity.Session)
	return s, ok
}

// sessionFromRequest returns the caller resolved by the auth middleware.
func sessionFromRequest(ctx context.Context) (identity.Session, huma.StatusError) {
	if s, ok := sessionFromContext(ctx); ok && s.UserID != "" {
		return s, nil
	}
	return identity.Session{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func actorFromRequest(ctx context.Context) (domain.Actor, huma.StatusError) {
	s, err := sessionFromRequest(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	return s.Actor(), nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func publicPaths(basePath string) []string {
	return []string{
		path.Join(basePath, "health"),
		path.Join(basePath, "auth/login"),
		path.Join(basePath, "openapi.json"),
		"/health",
		"/auth/login",
		"/openapi.json",
	}
}

func newAuthMiddleware(basePath string, p identity.Provider) func(http.Handler) http.Handler {
	public := map[string]bool{}
	for _, route := range publicPaths(basePath) {
		public[route] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}

			var cred identity.Credential
			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				cred.Bearer = token
			}
			cred.APIKey = strings.TrimSpace(req.Header.Get("X-Api-Key"))

			session, err := p.ResolveSession(req.Context(), cred)
			if err != nil {
				if errors.Is(err, identity.ErrUnauthenticated) {
					code := "invalid_credentials"
					msg := "invalid credentials"
					if cred.Bearer == "" && cred.APIKey == "" {
						code, msg = "unauthorized", "authentication required"
					}
					respondStatusError(w, newAPIError(http.StatusUnauthorized, code, msg, nil))
					return
				}
				respondStatusError(w, handleError(err))
				return
			}
			next.ServeHTTP(w, req.WithContext(withSession(req.Context(), session)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
