package http

import (
	"errors"
	"net/http"
	"strconv"

	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/engagement"
	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/domain/messaging"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/domain/pass"
	"cragline/backend/internal/domain/search"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/httpjson"
	"cragline/backend/internal/logger"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	httpjson.Write(w, status, v)
}

func Fail(w http.ResponseWriter, status int, msg string) {
	httpjson.Error(w, status, msg)
}

// decode reads the request body into dst, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpjson.Read(w, r, dst); err != nil {
		Fail(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

var (
	badRequest = []error{
		user.ErrBadRequest, gym.ErrBadRequest, activity.ErrBadRequest, engagement.ErrBadRequest,
		search.ErrBadRequest, messaging.ErrBadRequest, notifications.ErrBadRequest, pass.ErrBadRequest,
	}
	notFound = []error{
		user.ErrNotFound, gym.ErrNotFound, activity.ErrNotFound, engagement.ErrNotFound,
		messaging.ErrNotFound, notifications.ErrNotFound, pass.ErrNotFound,
	}
	unauthorized = []error{
		user.ErrUnauthorized, gym.ErrUnauthorized, activity.ErrUnauthorized, engagement.ErrUnauthorized,
		messaging.ErrUnauthorized, pass.ErrUnauthorized,
	}
	conflict = []error{
		user.ErrConflict, activity.ErrConflict, pass.ErrDuplicatePass,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// mapError turns a domain sentinel into a status code. Anything else is a
// store failure and is logged rather than echoed.
func mapError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case isAny(err, badRequest):
		return 400, err.Error()
	case isAny(err, unauthorized):
		return 403, err.Error()
	case isAny(err, notFound):
		return 404, err.Error()
	case isAny(err, conflict):
		return 409, err.Error()
	default:
		return 500, "internal error"
	}
}

// failErr writes err the way mapError classifies it.
func failErr(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	if pe, ok := pass.AsPermissionError(err); ok {
		httpjson.ErrorWithDetails(w, http.StatusForbidden, pe.Error(), map[string]any{"scannerStatus": pe.Status})
		return
	}
	status, msg := mapError(err)
	if status >= 500 {
		log.Error(r.Context(), "request error", err)
	}
	Fail(w, status, msg)
}
