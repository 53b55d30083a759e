package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	// ErrUnavailable marks transient store or lock failures; callers may retry.
	ErrUnavailable = errors.New("unavailable")
)

// IsDomain reports whether err already carries one of the sentinels above.
func IsDomain(err error) bool {
	for _, target := range []error{ErrNotFound, ErrForbidden, ErrInvalidInput, ErrConflict, ErrUnavailable} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
