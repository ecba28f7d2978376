package store

import "errors"

var (
	// ErrNotFound is returned when a document doesn't exist.
	ErrNotFound = errors.New("store: document not found")

	// ErrAlreadyExists is returned when a conditional create collides with
	// an existing document.
	ErrAlreadyExists = errors.New("store: document already exists")

	// ErrConditionFailed is returned when a guarded write's condition does
	// not hold (missing document, or a counter floor violation).
	ErrConditionFailed = errors.New("store: write condition failed")
)
