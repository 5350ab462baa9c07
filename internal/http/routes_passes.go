package http

import (
	"net/http"

	"cragline/backend/internal/domain/pass"
	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func mountPasses(pr chi.Router, d RouterDeps) {
	pr.Get("/v1/passes", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Passes.List(r.Context(), middleware.Session(r))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Post("/v1/passes", func(w http.ResponseWriter, r *http.Request) {
		var in pass.AddInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Passes.Add(r.Context(), middleware.Session(r), in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, out)
	})

	pr.Post("/v1/passes/scan", func(w http.ResponseWriter, r *http.Request) {
		var in pass.ImportInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Passes.ImportScan(r.Context(), middleware.Session(r), in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, out)
	})

	pr.Put("/v1/passes/{id}/primary", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Passes.SetPrimary(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Delete("/v1/passes/{id}", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Passes.Remove(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})
}
