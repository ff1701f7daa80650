package api

import (
	"github.com/starford/tutorview/internal/chapterservice"
	"github.com/starford/tutorview/internal/models"
	"github.com/starford/tutorview/internal/viewer"
)

// CreateSessionRequest is the request body for opening a viewer session.
type CreateSessionRequest struct {
	Fragment string `json:"fragment" example:"groupA-3"`
}

// SessionResponse carries a session id with its first update.
type SessionResponse struct {
	Session string        `json:"session" example:"1c1f7c1e-0c52-4b4c-9d7e-5d1b3b1ad2f0" validate:"required"`
	Update  viewer.Update `json:"update" validate:"required"`
}

// NavigateRequest is the request body for showing a chapter. Either id or
// path is required; id wins.
type NavigateRequest struct {
	ID     string `json:"id,omitempty" example:"groupA-3"`
	Path   string `json:"path,omitempty" example:"output/groupA/04_foo_.md"`
	Origin string `json:"origin,omitempty" example:"sidebar"`
}

// Update is the session state returned by every session endpoint.
type Update = viewer.Update

// CatalogResponse is the freshly discovered chapter catalog.
type CatalogResponse struct {
	Groups []models.ChapterGroup `json:"groups" validate:"required"`
	Total  int                   `json:"total" example:"12" validate:"required"`
}

// ChapterDetail is a rendered chapter (aliased from the domain layer).
type ChapterDetail = chapterservice.ChapterDetail
