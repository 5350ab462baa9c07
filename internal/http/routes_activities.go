package http

import (
	"context"
	"net/http"
	"strings"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/feed"
	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type itemsResponse struct {
	Items []activity.Item `json:"items"`
	Liked map[string]bool `json:"liked,omitempty"`
}

// hydrate attaches the caller's liked flags. Failure drops the flags, not
// the page.
func (d RouterDeps) hydrate(ctx context.Context, s authctx.Session, items []activity.Item) map[string]bool {
	if d.Engagement == nil || len(items) == 0 {
		return nil
	}
	liked, err := d.engine(s).Hydrate(ctx, items)
	if err != nil {
		d.Log.Warn(ctx, "hydrate liked state", err)
		return nil
	}
	return liked
}

func mountActivities(pr chi.Router, d RouterDeps) {
	pr.Post("/v1/activities", func(w http.ResponseWriter, r *http.Request) {
		var in activity.CreateInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Activities.Create(r.Context(), middleware.Session(r), in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, out)
	})

	pr.Get("/v1/activities", func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		var (
			items []activity.Item
			err   error
		)
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			kind := activity.ParseKind(raw)
			if kind == activity.KindUnknown {
				Fail(w, 400, "unknown activity type")
				return
			}
			items, err = d.Activities.ByKind(r.Context(), kind, limit)
		} else {
			items, err = d.Activities.Recent(r.Context(), limit)
		}
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, itemsResponse{Items: items, Liked: d.hydrate(r.Context(), middleware.Session(r), items)})
	})

	pr.Get("/v1/users/{uid}/activities", func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Activities.ByAuthor(r.Context(), chi.URLParam(r, "uid"), queryInt(r, "limit", 50))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, itemsResponse{Items: items, Liked: d.hydrate(r.Context(), middleware.Session(r), items)})
	})

	pr.Get("/v1/activities/{id}", func(w http.ResponseWriter, r *http.Request) {
		it, err := d.Activities.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		out := map[string]any{"item": it}
		if d.Engagement != nil {
			out["liked"] = d.engine(middleware.Session(r)).IsLiked(r.Context(), it.ID)
		}
		WriteJSON(w, 200, out)
	})

	pr.Delete("/v1/activities/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Activities.Delete(r.Context(), middleware.Session(r), chi.URLParam(r, "id")); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"success": true})
	})

	pr.Put("/v1/activities/{id}/featured", func(w http.ResponseWriter, r *http.Request) {
		var in activity.SetFeaturedInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Activities.SetFeatured(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), in.Featured)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	// group visits
	pr.Post("/v1/activities/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Activities.JoinVisit(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Post("/v1/activities/{id}/leave", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Activities.LeaveVisit(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Put("/v1/activities/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var in activity.SetVisitStatusInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Activities.SetVisitStatus(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), in.Status)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	// events
	pr.Post("/v1/activities/{id}/register", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Activities.RegisterForEvent(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	if d.Engagement != nil {
		mountEngagement(pr, d)
	}
}

func mountEngagement(pr chi.Router, d RouterDeps) {
	// withItem loads {id} and hands it to fn with an engine bound to the caller.
	withItem := func(fn func(w http.ResponseWriter, r *http.Request, item *activity.Item, s authctx.Session)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			item, err := d.Activities.Get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				failErr(w, r, d.Log, err)
				return
			}
			fn(w, r, item, middleware.Session(r))
		}
	}

	pr.Put("/v1/activities/{id}/like", withItem(func(w http.ResponseWriter, r *http.Request, item *activity.Item, s authctx.Session) {
		if err := d.engine(s).Like(r.Context(), item); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"item": item, "liked": true})
	}))

	pr.Delete("/v1/activities/{id}/like", withItem(func(w http.ResponseWriter, r *http.Request, item *activity.Item, s authctx.Session) {
		if err := d.engine(s).Unlike(r.Context(), item); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"item": item, "liked": false})
	}))

	pr.Get("/v1/activities/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.engine(middleware.Session(r)).Comments(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 50))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Post("/v1/activities/{id}/comments", withItem(func(w http.ResponseWriter, r *http.Request, item *activity.Item, s authctx.Session) {
		var in struct {
			Text string `json:"text"`
		}
		if !decode(w, r, &in) {
			return
		}
		c, err := d.engine(s).Comment(r.Context(), item, in.Text)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, map[string]any{"comment": c, "item": item})
	}))

	pr.Delete("/v1/activities/{id}/comments/{commentId}", withItem(func(w http.ResponseWriter, r *http.Request, item *activity.Item, s authctx.Session) {
		if err := d.engine(s).DeleteComment(r.Context(), item, chi.URLParam(r, "commentId")); err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"item": item})
	}))
}

// mountFeed serves the home screen: featured events and beta plus the
// newest items, computed by the same model the app binds to.
func mountFeed(pr chi.Router, d RouterDeps) {
	pr.Get("/v1/feed/home", func(w http.ResponseWriter, r *http.Request) {
		var eng feed.Engagement
		if d.Engagement != nil {
			eng = d.engine(middleware.Session(r))
		}
		home := feed.NewHome(d.Activities, eng, d.Log, feed.HomeOptions{
			PoolSize:      d.Cfg.FeedPoolSize,
			FeaturedLimit: d.Cfg.FeaturedLimit,
		})
		for _, load := range []func(context.Context){home.LoadFeaturedContent, home.LoadFeed} {
			load(r.Context())
			if st := home.State(); st.HasError {
				Fail(w, 502, st.ErrorMessage)
				return
			}
		}
		WriteJSON(w, 200, home.State())
	})
}
