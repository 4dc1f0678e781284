package domain

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRequest signals a malformed caller request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTopicNotFound signals a topic id absent from the catalog.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrInsufficientMatches signals that fewer questions matched than requested.
	ErrInsufficientMatches = errors.New("insufficient matches")
	// ErrProviderError signals an embedding provider or index failure.
	ErrProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals that the generative fallback could not fill the shortfall.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrValidationUnavailable signals that the alignment scorer could not be reached.
	ErrValidationUnavailable = errors.New("validation unavailable")
	// ErrGenerationQuotaExceeded signals that the generation token budget is spent.
	ErrGenerationQuotaExceeded = errors.New("generation token quota exceeded")

	// ErrDimensionMismatch signals a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrStoreUnavailable signals a backing store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InsufficientMatchesError wraps ErrInsufficientMatches with the counts and the subset found.
type InsufficientMatchesError struct {
	Found     int
	Requested int
	// Partial holds the questions that did match, in rank order.
	Partial []question.Question
}

func (e *InsufficientMatchesError) Error() string {
	return fmt.Sprintf("%s: found %d of %d requested", ErrInsufficientMatches.Error(), e.Found, e.Requested)
}

func (e *InsufficientMatchesError) Unwrap() error { return ErrInsufficientMatches }

// NewInsufficientMatches creates an insufficiency error carrying the partial result.
func NewInsufficientMatches(partial []question.Question, requested int) error {
	return &InsufficientMatchesError{Found: len(partial), Requested: requested, Partial: partial}
}

// ProviderError wraps ErrProviderError with a message and the underlying cause.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrProviderError.Error(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrProviderError.Error(), e.Message)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProviderError, e.Err}
	}
	return []error{ErrProviderError}
}

// NewProviderError creates a provider error.
func NewProviderError(message string, err error) error {
	return &ProviderError{Message: message, Err: err}
}

// GenerationFailedError wraps ErrGenerationFailed with a reason.
type GenerationFailedError struct {
	Reason string
	Err    error
}

func (e *GenerationFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrGenerationFailed.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrGenerationFailed.Error(), e.Reason)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *GenerationFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGenerationFailed, e.Err}
	}
	return []error{ErrGenerationFailed}
}

// NewGenerationFailed creates a generation failure.
func NewGenerationFailed(reason string, err error) error {
	return &GenerationFailedError{Reason: reason, Err: err}
}

// ValidationUnavailableError wraps ErrValidationUnavailable with a reason.
type ValidationUnavailableError struct {
	Reason string
	Err    error
}

func (e *ValidationUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrValidationUnavailable.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrValidationUnavailable.Error(), e.Reason)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *ValidationUnavailableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidationUnavailable, e.Err}
	}
	return []error{ErrValidationUnavailable}
}

// NewValidationUnavailable creates a validation-unavailable error.
func NewValidationUnavailable(reason string, err error) error {
	return &ValidationUnavailableError{Reason: reason, Err: err}
}
