package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a missing or invalid model, index path or setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrModelMismatch signals that the querying embedder differs from the one that built the index.
	ErrModelMismatch = errors.New("embedding model mismatch")
	// ErrCorruptIndex signals that persisted index artifacts disagree with each other.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrEmptyInput signals an empty record set passed to the index builder.
	ErrEmptyInput = errors.New("empty input")
	// ErrDuplicateRecord signals two knowledge records sharing one id.
	ErrDuplicateRecord = errors.New("duplicate record id")
	// ErrEmbeddingDimMismatch signals vectors of inconsistent dimension.
	ErrEmbeddingDimMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidK signals a non-positive result count.
	ErrInvalidK = errors.New("k must be >= 1")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a text generator failure or timeout.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrGeneratorUnavailable signals that no healthy generator is configured.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)

// ConfigurationError names the offending setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration.Error(), e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error for the given field.
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// ModelMismatchError records both model identities.
type ModelMismatchError struct {
	IndexModel string
	QueryModel string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("%s: index built with %q, query embedder is %q",
		ErrModelMismatch.Error(), e.IndexModel, e.QueryModel)
}

func (e *ModelMismatchError) Unwrap() error { return ErrModelMismatch }

// CorruptIndexError describes which consistency check failed. The index must be rebuilt.
type CorruptIndexError struct {
	Reason string
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("%s: %s (rebuild the index)", ErrCorruptIndex.Error(), e.Reason)
}

func (e *CorruptIndexError) Unwrap() error { return ErrCorruptIndex }

// NewCorruptIndex creates a corrupt index error.
func NewCorruptIndex(format string, args ...any) error {
	return &CorruptIndexError{Reason: fmt.Sprintf(format, args...)}
}

// DimensionMismatchError reports the first vector whose dimension disagrees.
type DimensionMismatchError struct {
	Expected int
	Got      int
	Position int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d at position %d",
		ErrEmbeddingDimMismatch.Error(), e.Expected, e.Got, e.Position)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrEmbeddingDimMismatch }

// ErrorClass returns the taxonomy name of err, used by the CLI for exit reporting.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, ErrModelMismatch):
		return "ModelMismatchError"
	case errors.Is(err, ErrCorruptIndex):
		return "CorruptIndexError"
	case errors.Is(err, ErrEmptyInput):
		return "EmptyInputError"
	case errors.Is(err, ErrDuplicateRecord):
		return "DuplicateRecordError"
	case errors.Is(err, ErrEmbeddingDimMismatch):
		return "EmbeddingDimensionMismatchError"
	case errors.Is(err, ErrInvalidK):
		return "InvalidKError"
	case errors.Is(err, ErrEmbeddingProviderError):
		return "EmbeddingProviderError"
	case errors.Is(err, ErrGenerationFailed):
		return "GenerationTimeoutOrFailure"
	default:
		return "InternalError"
	}
}
