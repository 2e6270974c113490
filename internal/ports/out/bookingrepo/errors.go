package bookingrepo

import "errors"

var (
	// ErrNotFound indicates no booking matches the requested id and owner.
	ErrNotFound = errors.New("booking not found")

	// ErrAlreadyExists indicates a booking already exists with the provided ID.
	ErrAlreadyExists = errors.New("booking already exists")
)
