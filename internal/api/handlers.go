package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/chapterservice"
	"github.com/starford/tutorview/internal/checksum"
	"github.com/starford/tutorview/internal/viewer"
)

// Handler holds API route handlers.
type Handler struct {
	reg *viewer.Registry
	svc *chapterservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(reg *viewer.Registry, svc *chapterservice.Service) *Handler {
	return &Handler{reg: reg, svc: svc}
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Open a viewer session and show the initial chapter
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	false	"URL fragment of the page"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	s, u, err := h.reg.Create(r.Context(), req.Fragment)
	if err != nil {
		slog.Error("open session failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Session: s.ID(), Update: u})
}

// GetSession handles GET /api/sessions/{sid}.
//
//	@Summary		Current state of a viewer session
//	@Tags			sessions
//	@Produce		json
//	@Param			sid	path		string	true	"Session id"
//	@Success		200	{object}	Update
//	@Failure		404	{object}	errResponse
//	@Router			/sessions/{sid} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

// Navigate handles POST /api/sessions/{sid}/navigate.
//
//	@Summary		Show a chapter by id or resource path
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session id"
//	@Param			body	body		NavigateRequest	true	"Target chapter"
//	@Success		200		{object}	Update
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/sessions/{sid}/navigate [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.ID) == "" && strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id or path is required"))
		return
	}

	u, err := sessionFrom(r).Navigate(r.Context(), viewer.NavigationRequest{
		ID:     strings.TrimSpace(req.ID),
		Path:   req.Path,
		Origin: viewer.Origin(req.Origin),
	})
	if err != nil {
		writeSessionError(w, "navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ToggleGroup handles POST /api/sessions/{sid}/groups/{group}/toggle.
//
//	@Summary		Expand or collapse a sidebar group
//	@Tags			sessions
//	@Produce		json
//	@Param			sid		path		string	true	"Session id"
//	@Param			group	path		string	true	"Group directory"
//	@Success		200		{object}	Update
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/sessions/{sid}/groups/{group}/toggle [post]
func (h *Handler) ToggleGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	if decoded, err := url.PathUnescape(group); err == nil {
		group = decoded
	}
	u, err := sessionFrom(r).ToggleGroup(group)
	if err != nil {
		writeSessionError(w, "toggle group", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Search handles GET /api/sessions/{sid}/search.
//
//	@Summary		Full-text search shown in the session's results view
//	@Tags			sessions
//	@Produce		json
//	@Param			sid	path		string	true	"Session id"
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	Update
//	@Success		204
//	@Failure		409	{object}	errResponse
//	@Router			/sessions/{sid}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	u, ran, err := sessionFrom(r).Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeSessionError(w, "search", err)
		return
	}
	if !ran {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Catalog handles GET /api/catalog.
//
//	@Summary		Discover tutorial groups and chapters
//	@Tags			chapters
//	@Produce		json
//	@Success		200	{object}	CatalogResponse
//	@Failure		503	{object}	errResponse
//	@Router			/catalog [get]
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.Catalog(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNoTutorials) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("no tutorials found"))
			return
		}
		slog.Error("catalog failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Groups: cat.Groups(), Total: cat.Len()})
}

// GetChapter handles GET /api/chapters/*.
//
//	@Summary		Read and render one chapter by id or resource path
//	@Tags			chapters
//	@Produce		json
//	@Param			ref	path		string	true	"Chapter id or path"
//	@Success		200	{object}	ChapterDetail
//	@Success		304
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Router			/chapters/{ref} [get]
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("chapter reference is required"))
		return
	}
	detail, err := h.svc.ReadChapter(r.Context(), ref)
	switch {
	case err == nil:
		etag := checksum.ETag(detail.Checksum)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case errors.Is(err, apperr.ErrUnknownChapter), errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNoTutorials):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no tutorials found"))
	default:
		slog.Error("read chapter failed", slog.String("ref", ref), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeSessionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotReady):
		writeJSON(w, http.StatusConflict, errorBody("no tutorials loaded"))
	case errors.Is(err, apperr.ErrUnknownChapter):
		writeJSON(w, http.StatusNotFound, errorBody("unknown chapter"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
