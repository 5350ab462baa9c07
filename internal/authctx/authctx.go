package authctx

import (
	"context"
	"time"
)

// Session is the explicit per-request identity handed to components that act
// on behalf of a user.
type Session struct {
	UID    string
	Email  string
	Claims map[string]any
}

func (s Session) Authenticated() bool { return s.UID != "" }

// IsAdmin reports a platform admin claim (see cmd/set-claims).
func (s Session) IsAdmin() bool {
	if s.Claims == nil {
		return false
	}
	if admin, ok := s.Claims["admin"].(bool); ok && admin {
		return true
	}
	if role, ok := s.Claims["role"].(string); ok && role == "admin" {
		return true
	}
	return false
}

// GymRole returns the administrator role claimed for a gym, if any.
func (s Session) GymRole(gymID string) (string, bool) {
	gyms, ok := s.Claims["gyms"].(map[string]any)
	if !ok {
		return "", false
	}
	role, ok := gyms[gymID].(string)
	return role, ok && role != ""
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.Authenticated()
}

// MergeClaims overlays patch on existing custom claims and stamps
// claimsUpdatedAt. A nil value in patch removes the key.
func MergeClaims(existing, patch map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(existing)+len(patch)+1)
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	out["claimsUpdatedAt"] = now.Unix()
	return out
}
