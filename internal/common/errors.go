// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Common application errors.
var (
	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Classification errors.
	ErrModelNotLoaded       = errors.New("model not loaded")
	ErrClassificationFailed = errors.New("classification failed")
)
