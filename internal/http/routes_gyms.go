package http

import (
	"net/http"

	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func mountGyms(pr chi.Router, d RouterDeps) {
	pr.Post("/v1/gyms", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		var in gym.CreateGymInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Gyms.CreateGym(r.Context(), s.UID, in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, out)
	})

	pr.Get("/v1/gyms", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Gyms.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 20))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/gyms/{gymId}", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		gymID := chi.URLParam(r, "gymId")
		g, err := d.Gyms.Get(r.Context(), gymID)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		fav, err := d.Gyms.IsFavorite(r.Context(), s.UID, gymID)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"gym": g, "isFavorite": fav})
	})

	pr.Get("/v1/me/favorites", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		out, err := d.Gyms.Favorites(r.Context(), s.UID)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Put("/v1/gyms/{gymId}/favorite", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		out, err := d.Gyms.AddFavorite(r.Context(), s.UID, chi.URLParam(r, "gymId"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Delete("/v1/gyms/{gymId}/favorite", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		if err := d.Gyms.RemoveFavorite(r.Context(), s.UID, chi.URLParam(r, "gymId")); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"success": true})
	})

	pr.Post("/v1/gyms/{gymId}/administrators", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		var in gym.AddAdministratorInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Gyms.AddAdministrator(r.Context(), s.UID, chi.URLParam(r, "gymId"), in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, out)
	})
}
