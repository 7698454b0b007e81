package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or was closed.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrCatalogNotFound indicates the catalog could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrInvalidCatalog is returned when a catalog breaks its load-time invariants.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrUnsupportedCommand is returned for command types clients may not send.
	ErrUnsupportedCommand = errors.New("unsupported command")
)
