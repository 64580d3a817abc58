package sqlite

import "errors"

// Sentinel errors returned by Store. Callers match them with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid input")
	ErrForeignID = errors.New("id belongs to another team")
)
