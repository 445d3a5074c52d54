package domain

import "errors"

var (
	// ErrNotFound means no post exists with the requested id.
	ErrNotFound = errors.New("post not found")

	// ErrForbidden means the operation is disabled by the current write policy.
	ErrForbidden = errors.New("post writes are not allowed")
)
