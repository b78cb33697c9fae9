package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactUnavailable marks a model or encoder that did not load at startup
	ErrArtifactUnavailable = errors.New("inference: artifact unavailable")

	// ErrUnknownCategory marks a categorical value outside an encoder's vocabulary
	ErrUnknownCategory = errors.New("inference: unknown category")

	// ErrPrediction marks any other failure while building features or invoking a model
	ErrPrediction = errors.New("inference: prediction failed")
)

// EncodingError reports the encoder and value that could not be encoded
type EncodingError struct {
	Encoder string
	Value   string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("inference: encoder %q has no class %q", e.Encoder, e.Value)
}

// Unwrap lets errors.Is match ErrUnknownCategory
func (e *EncodingError) Unwrap() error {
	return ErrUnknownCategory
}

func predictionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrediction, fmt.Sprintf(format, args...))
}
