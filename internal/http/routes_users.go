package http

import (
	"net/http"

	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func mountUsers(pr chi.Router, d RouterDeps) {
	pr.Patch("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		var in user.UpdateProfileInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Users.UpdateProfile(r.Context(), s.UID, in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/users/search", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Users.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 20))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/users/by-username/{username}", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/users/{uid}", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Users.Get(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/users/{uid}/follow", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		ok, err := d.Users.IsFollowing(r.Context(), s.UID, chi.URLParam(r, "uid"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"following": ok})
	})

	pr.Post("/v1/users/{uid}/follow", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		out, err := d.Users.Follow(r.Context(), s.UID, chi.URLParam(r, "uid"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Delete("/v1/users/{uid}/follow", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		if err := d.Users.Unfollow(r.Context(), s.UID, chi.URLParam(r, "uid")); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"success": true})
	})

	pr.Get("/v1/users/{uid}/followers", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Users.Followers(r.Context(), chi.URLParam(r, "uid"), queryInt(r, "limit", 100))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/users/{uid}/following", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Users.Following(r.Context(), chi.URLParam(r, "uid"), queryInt(r, "limit", 100))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})
}
