package http

import (
	"net/http"

	"cragline/backend/internal/domain/search"

	"github.com/go-chi/chi/v5"
)

func mountSearch(pr chi.Router, d RouterDeps) {
	pr.Get("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter, ok := search.ParseFilter(q.Get("filter"))
		if !ok {
			Fail(w, 400, "filter must be one of all, users, beta, events")
			return
		}
		out, err := d.Search.Search(r.Context(), q.Get("q"), filter)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"query": q.Get("q"), "filter": filter, "results": out})
	})
}
