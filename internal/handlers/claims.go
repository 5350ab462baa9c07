package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/httpjson"
	"cragline/backend/internal/logger"

	"firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"
)

// ClaimsStore is the slice of *auth.Client claim syncing needs.
type ClaimsStore interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
}

// GymClaims builds the gym-role claim fragment for a user.
type GymClaims interface {
	Claims(ctx context.Context, uid string) (map[string]any, error)
}

type Claims struct {
	store ClaimsStore
	gyms  GymClaims
	log   *logger.Logger
	now   func() time.Time
}

func NewClaims(store ClaimsStore, gyms GymClaims, log *logger.Logger) *Claims {
	if log == nil {
		log = logger.Nop()
	}
	return &Claims{store: store, gyms: gyms, log: log, now: time.Now}
}

// Sync rewrites {uid}'s gym-role claims from the administrator records,
// keeping every other claim. Admin only.
func (h *Claims) Sync(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(chi.URLParam(r, "uid"))
	if uid == "" {
		httpjson.Error(w, http.StatusBadRequest, "uid is required")
		return
	}
	ctx := h.log.WithField(r.Context(), "target_uid", uid)

	rec, err := h.store.GetUser(ctx, uid)
	if auth.IsUserNotFound(err) {
		httpjson.Error(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.Error(ctx, "load auth user", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	patch, err := h.gyms.Claims(ctx, uid)
	if err != nil {
		h.log.Error(ctx, "build gym claims", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to read gym roles")
		return
	}

	claims := authctx.MergeClaims(rec.CustomClaims, patch, h.now())
	if err := h.store.SetCustomUserClaims(ctx, uid, claims); err != nil {
		h.log.Error(ctx, "set custom claims", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to set claims")
		return
	}
	h.log.Info(ctx, "claims synced")
	httpjson.Write(w, http.StatusOK, map[string]any{"ok": true, "claims": claims})
}
