// Package api implements the tutorview HTTP API using chi.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/viewer"
)

type ctxKey int

const sessionKey ctxKey = iota

// SessionMiddleware resolves the {sid} URL parameter to a live session.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.reg.Get(chi.URLParam(r, "sid"))
		if err != nil {
			if errors.Is(err, apperr.ErrUnknownSession) {
				writeJSON(w, http.StatusNotFound, errorBody("unknown session"))
				return
			}
			slog.Error("session lookup failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

func sessionFrom(r *http.Request) *viewer.Session {
	s, _ := r.Context().Value(sessionKey).(*viewer.Session)
	return s
}
