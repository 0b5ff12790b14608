// Package core defines the fundamental types and errors for Catchat.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Storage errors
	ErrDatabaseNotFound = errors.New("database not found")
	ErrDatabaseLocked   = errors.New("database is locked")
	ErrMigrationFailed  = errors.New("migration failed")
	ErrRecordNotFound   = errors.New("record not found")
	ErrDuplicateRecord  = errors.New("duplicate record")

	// Routing errors
	ErrNoIntent           = errors.New("no intent detected")
	ErrCatalogUnavailable = errors.New("intent catalog unavailable")
	ErrNoLocation         = errors.New("no location resolved")
	ErrNoWeatherData      = errors.New("no weather data")

	// Completion errors
	ErrLLMUnavailable    = errors.New("LLM service unavailable")
	ErrLLMNotConfigured  = errors.New("LLM provider not configured")
	ErrEmptyCompletion   = errors.New("empty completion")
	ErrSpeechUnavailable = errors.New("speech service unavailable")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
	ErrNotFound        = errors.New("not found")
)
