package quizdex

import "github.com/kailas-cloud/quizdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                = domain.ErrNotFound
	ErrAlreadyExists           = domain.ErrAlreadyExists
	ErrInvalidRequest          = domain.ErrInvalidRequest
	ErrTopicNotFound           = domain.ErrTopicNotFound
	ErrInsufficientMatches     = domain.ErrInsufficientMatches
	ErrProviderError           = domain.ErrProviderError
	ErrGenerationFailed        = domain.ErrGenerationFailed
	ErrValidationUnavailable   = domain.ErrValidationUnavailable
	ErrGenerationQuotaExceeded = domain.ErrGenerationQuotaExceeded
	ErrDimensionMismatch       = domain.ErrDimensionMismatch
)

// InsufficientMatchesError carries the questions that were found.
// Use errors.As() to inspect it.
type InsufficientMatchesError = domain.InsufficientMatchesError
