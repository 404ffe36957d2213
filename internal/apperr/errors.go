package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrNoCredential     = errors.New("no credential configured")
	ErrNoActiveDocument = errors.New("no active document")
)
