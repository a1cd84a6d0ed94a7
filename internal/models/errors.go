// Package models defines data structures for MAGMA
package models

import "errors"

// Error taxonomy for the advisory core. DataUnavailable and degenerate
// computations never cross a component boundary; they degrade to neutral
// values carried in the output data. InvalidInput is rejected at the HTTP
// boundary before reaching the core.
var (
	// ErrDataUnavailable marks a single fetch axis that could not be
	// retrieved for a ticker. The axis degrades; the request continues.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientData marks a ticker that cannot be scored at all.
	// It is excluded from ranking and reported with confidence 0.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidInput marks malformed caller input (bad ticker set,
	// negative shares). Rejected at the boundary.
	ErrInvalidInput = errors.New("invalid input")
)
