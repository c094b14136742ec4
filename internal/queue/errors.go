package queue

import (
	"errors"
	"fmt"

	"github.com/openpulpit/sermon-api/internal/store"
)

// Common sentinel errors for the queue service
var (
	// ErrSermonNotFound indicates the sermon does not exist.
	ErrSermonNotFound = errors.New("sermon not found")

	// ErrJobNotFound indicates no queue entry exists for the request.
	ErrJobNotFound = errors.New("transcription job not found")

	// ErrNoAudioSource indicates the sermon has no usable audio URL to
	// transcribe from.
	ErrNoAudioSource = errors.New("sermon has no usable audio source")

	// ErrCannotCancel indicates the job is in a state that cannot be
	// cancelled. The wrapping error names the state.
	ErrCannotCancel = errors.New("job cannot be cancelled")

	// ErrTranscriptMissing indicates an operation needed a transcript the
	// sermon does not have.
	ErrTranscriptMissing = errors.New("sermon has no transcript")
)

// ServiceError wraps errors from the queue service with operation context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "add", "process")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("queue %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("queue %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError wraps err with operation context. Known sentinel errors
// pass through unchanged so callers can match on them directly.
func newServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrSermonNotFound),
		errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrNoAudioSource),
		errors.Is(err, ErrCannotCancel):
		return err
	case errors.Is(err, store.ErrSermonNotFound):
		return ErrSermonNotFound
	case errors.Is(err, store.ErrQueueEntryNotFound):
		return ErrJobNotFound
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
