package social

import "errors"

var (
	// ErrNotFound is returned when a referenced document is absent.
	ErrNotFound = errors.New("social: not found")

	// ErrConflict is returned for a duplicate like, a missing like on
	// unlike, or a taken handle.
	ErrConflict = errors.New("social: conflict")

	// ErrForbidden is returned when the actor isn't allowed to perform
	// the operation (e.g. deleting someone else's post).
	ErrForbidden = errors.New("social: forbidden")
)
