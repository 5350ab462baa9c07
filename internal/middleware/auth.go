package middleware

import (
	"context"
	"net/http"
	"strings"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/httpjson"
	"cragline/backend/internal/logger"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// WithAuth verifies the Firebase ID token and attaches an authctx.Session.
// Websocket clients that cannot set headers may pass ?access_token= on the
// upgrade request.
func WithAuth(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idToken := bearer(r)
			if idToken == "" {
				httpjson.Error(w, http.StatusUnauthorized, "missing Authorization: Bearer <token>")
				return
			}

			tok, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				log.Warn(r.Context(), "token rejected", err)
				httpjson.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			s := authctx.Session{UID: tok.UID, Claims: tok.Claims}
			if v, ok := tok.Claims["email"].(string); ok {
				s.Email = v
			}

			ctx := authctx.WithSession(r.Context(), s)
			ctx = log.WithUserID(ctx, s.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > len("bearer ") && strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}

// Session returns the caller's session; the zero Session when the request
// did not pass WithAuth.
func Session(r *http.Request) authctx.Session {
	s, _ := authctx.FromContext(r.Context())
	return s
}

// RequireAdmin rejects callers without the platform admin claim.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Session(r).IsAdmin() {
			httpjson.Error(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
