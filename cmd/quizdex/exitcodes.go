package main

import (
	"errors"

	"github.com/kailas-cloud/quizdex/internal/domain"
)

// Exit codes.
const (
	ExitSuccess      = 0 // Success
	ExitError        = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError  = 2 // Configuration could not be loaded or validated
	ExitInsufficient = 3 // Selection could not be filled
	ExitQuota        = 4 // Generation token budget exhausted
	ExitProvider     = 5 // Embedding or generation provider unavailable
)

// configError marks failures that happen before the app is wired.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var ce *configError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ce):
		return ExitConfigError
	case errors.Is(err, domain.ErrGenerationQuotaExceeded):
		return ExitQuota
	case errors.Is(err, domain.ErrInsufficientMatches):
		return ExitInsufficient
	case errors.Is(err, domain.ErrProviderError),
		errors.Is(err, domain.ErrGenerationFailed),
		errors.Is(err, domain.ErrValidationUnavailable):
		return ExitProvider
	default:
		return ExitError
	}
}
