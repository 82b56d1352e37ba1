package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidProgress = errors.New("invalid progress")
	ErrUnknownColumn   = errors.New("unknown column")
)

// IsValidation reports whether err belongs to the input-validation family.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidTitle) ||
		errors.Is(err, ErrInvalidPriority) ||
		errors.Is(err, ErrInvalidProgress) ||
		errors.Is(err, ErrUnknownColumn)
}
