package app

import "errors"

// ErrNotFound reports a task or column id that is not in the store.
var ErrNotFound = errors.New("not found")

// ErrInvalidSnapshot reports a snapshot that cannot be imported.
var ErrInvalidSnapshot = errors.New("invalid snapshot")
