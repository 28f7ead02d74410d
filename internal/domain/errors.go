package domain

import "errors"

var (
	// ErrNotFound: the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrReferenceNotFound: a write names a related record that does not exist.
	ErrReferenceNotFound = errors.New("referenced record not found")
	// ErrInvalidArgument: the caller supplied a value the operation rejects
	// before touching the store (bad depth, unknown filter or attribute name).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStillReferenced: deletion refused because other records still point
	// at the target.
	ErrStillReferenced = errors.New("still referenced")
	// ErrAlreadyExists: a create collided with an existing business key.
	ErrAlreadyExists = errors.New("already exists")
)
