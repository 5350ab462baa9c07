package http

import (
	"net/http"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/config"
	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/engagement"
	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/domain/messaging"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/domain/pass"
	"cragline/backend/internal/domain/search"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/handlers"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/metrics"
	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RouterDeps carries every collaborator the routes need. Nil services leave
// their routes unmounted.
type RouterDeps struct {
	Cfg      config.Config
	Log      *logger.Logger
	Verifier middleware.TokenVerifier

	Users         *user.Service
	Gyms          *gym.Service
	Activities    *activity.Service
	Engagement    engagement.Store
	LikedSet      engagement.LikedSet
	Notifications *notifications.Service
	Messaging     *messaging.Service
	Search        *search.Service
	Passes        *pass.Service

	Uploads  *handlers.Uploads
	Realtime *handlers.Realtime
	Claims   *handlers.Claims
}

// engine binds the engagement engine to one caller.
func (d RouterDeps) engine(s authctx.Session) *engagement.Engine {
	e := engagement.NewEngine(s, d.Engagement, d.LikedSet, d.Log)
	if d.Notifications != nil {
		e.SetNotifier(d.Notifications)
	}
	if d.Users != nil {
		e.SetProfiles(d.Users)
	}
	return e
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.LikedSet == nil {
		d.LikedSet = engagement.NewMemoryLikedSet()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLog(d.Log))
	r.Use(middleware.CORS(d.Cfg.AllowedOrigins, d.Log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.WithAuth(d.Verifier, d.Log))

		pr.Get("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			s := middleware.Session(r)
			out := map[string]any{"uid": s.UID, "email": s.Email, "claims": s.Claims}
			if d.Users != nil {
				u, err := d.Users.Ensure(r.Context(), s.UID, s.Email)
				if err != nil {
					failErr(w, r, d.Log, err)
					return
				}
				out["profile"] = u
			}
			WriteJSON(w, 200, out)
		})

		if d.Users != nil {
			mountUsers(pr, d)
		}
		if d.Gyms != nil {
			mountGyms(pr, d)
		}
		if d.Activities != nil {
			mountActivities(pr, d)
			mountFeed(pr, d)
		}
		if d.Search != nil {
			mountSearch(pr, d)
		}
		if d.Messaging != nil {
			mountMessaging(pr, d)
		}
		if d.Notifications != nil {
			mountNotifications(pr, d)
		}
		if d.Passes != nil {
			mountPasses(pr, d)
		}

		if d.Uploads != nil {
			pr.Post("/v1/uploads/signed-url", d.Uploads.CreateSignedUploadURL)
			pr.Post("/v1/uploads/signed-urls", d.Uploads.CreateSignedUploadURLs)
			pr.Post("/v1/uploads/confirm", d.Uploads.Confirm)
		}
		if d.Realtime != nil {
			pr.Get("/v1/ws", d.Realtime.Serve)
		}
		if d.Claims != nil {
			pr.With(middleware.RequireAdmin).Post("/v1/admin/claims/{uid}/sync", d.Claims.Sync)
		}
	})

	return r
}
