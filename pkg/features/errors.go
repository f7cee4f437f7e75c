package features

import "errors"

var (
	// ErrUnknownKind is returned for kinds missing from the catalog.
	ErrUnknownKind = errors.New("features: unknown kind")

	// ErrUnavailable is returned when a feature could not be constructed.
	// The kind stays unavailable for the rest of the session.
	ErrUnavailable = errors.New("features: unavailable")
)
