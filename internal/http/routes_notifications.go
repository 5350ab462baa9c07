package http

import (
	"net/http"

	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func mountNotifications(pr chi.Router, d RouterDeps) {
	pr.Get("/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		out, err := d.Notifications.List(r.Context(), s.UID, queryBool(r, "unread"), queryInt(r, "limit", 50))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Post("/v1/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		n, err := d.Notifications.MarkAllAsRead(r.Context(), s.UID)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"success": true, "updated": n})
	})

	pr.Post("/v1/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		if err := d.Notifications.MarkAsRead(r.Context(), s.UID, chi.URLParam(r, "id")); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"success": true})
	})

	pr.Delete("/v1/notifications/{id}", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		if err := d.Notifications.Delete(r.Context(), s.UID, chi.URLParam(r, "id")); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"success": true})
	})
}
