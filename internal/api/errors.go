package api

import (
	"errors"
	"net/http"

	"github.com/openpulpit/sermon-api/internal/auth"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/queue"
	"github.com/openpulpit/sermon-api/internal/store"
	"github.com/openpulpit/sermon-api/internal/summary"
)

// MapErrorToStatusCode maps service errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongPassword):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, queue.ErrSermonNotFound),
		errors.Is(err, queue.ErrJobNotFound),
		errors.Is(err, store.ErrSermonNotFound),
		errors.Is(err, store.ErrQueueEntryNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, queue.ErrNoAudioSource),
		errors.Is(err, queue.ErrCannotCancel),
		errors.Is(err, queue.ErrTranscriptMissing),
		errors.Is(err, summary.ErrNoTranscript),
		errors.Is(err, domain.ErrChunkIndexOutOfRange),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrWrongPassword):
		return "Invalid credentials"

	case errors.Is(err, queue.ErrSermonNotFound), errors.Is(err, store.ErrSermonNotFound):
		return "Sermon not found"

	case errors.Is(err, queue.ErrJobNotFound), errors.Is(err, store.ErrQueueEntryNotFound):
		return "Transcription job not found"

	case errors.Is(err, queue.ErrNoAudioSource):
		return "Sermon has no usable audio source"

	case errors.Is(err, queue.ErrCannotCancel):
		// The wrapped error names the job's state, which is safe and
		// useful for the caller.
		return err.Error()

	case errors.Is(err, queue.ErrTranscriptMissing),
		errors.Is(err, summary.ErrNoTranscript):
		return "Sermon has no transcript"

	case errors.Is(err, domain.ErrChunkIndexOutOfRange):
		return "Chunk index out of range"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}
