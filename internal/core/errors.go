// Package core defines the fundamental types and errors for StreakForge.
package core

import "errors"

// Core errors that can occur across the system
var (
	// ErrBadgeNotFound reports an operation against a badge the user has
	// not earned or the catalog does not define.
	ErrBadgeNotFound = errors.New("badge not found")

	// ErrEmptyCatalog reports a catalog with no definitions.
	ErrEmptyCatalog = errors.New("catalog has no definitions")
)
