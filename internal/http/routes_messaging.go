package http

import (
	"net/http"

	"cragline/backend/internal/domain/messaging"
	"cragline/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func mountMessaging(pr chi.Router, d RouterDeps) {
	pr.Post("/v1/conversations", func(w http.ResponseWriter, r *http.Request) {
		var in messaging.StartInput
		if !decode(w, r, &in) {
			return
		}
		out, err := d.Messaging.StartConversation(r.Context(), middleware.Session(r), in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Get("/v1/conversations", func(w http.ResponseWriter, r *http.Request) {
		s := middleware.Session(r)
		out, err := d.Messaging.Conversations(r.Context(), s, queryInt(r, "limit", 50))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, map[string]any{
			"conversations": out,
			"totalUnread":   messaging.TotalUnread(out, s.UID),
		})
	})

	pr.Get("/v1/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Messaging.Messages(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), queryInt(r, "limit", 100))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})

	pr.Post("/v1/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var in messaging.SendInput
		if !decode(w, r, &in) {
			return
		}
		msg, conv, err := d.Messaging.SendMessage(r.Context(), middleware.Session(r), chi.URLParam(r, "id"), in)
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 201, map[string]any{"message": msg, "conversation": conv})
	})

	pr.Post("/v1/conversations/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Messaging.MarkConversationAsRead(r.Context(), middleware.Session(r), chi.URLParam(r, "id"))
		if err != nil {
			failErr(w, r, d.Log, err)
			return
		}
		WriteJSON(w, 200, out)
	})
}
