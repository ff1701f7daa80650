// Package apperr holds the sentinel errors shared across tutorview packages.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoTutorials    = errors.New("no tutorials found")
	ErrUnknownSession = errors.New("unknown session")
	ErrUnknownChapter = errors.New("unknown chapter")
	ErrNotReady       = errors.New("viewer not ready")
	ErrTooLarge       = errors.New("resource too large")
)
