package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/httpx"
)

// Authenticator resolves an access token into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// TokenFromHeader extracts the credential from "Authorization: Token <t>"
// or "Authorization: Bearer <t>".
func TokenFromHeader(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(token)
	}
	return ""
}

// Auth rejects requests without a valid token and stores the caller's
// identity on the request context.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromHeader(r)
			if token == "" {
				httpx.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}

			id, err := a.Authenticate(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
