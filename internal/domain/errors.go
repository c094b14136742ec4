package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrEmptySermonID is returned when a sermon ID is missing.
	ErrEmptySermonID = errors.New("sermon ID cannot be empty")

	// ErrInvalidTranscriptionStatus is returned when a transcription status is not valid.
	ErrInvalidTranscriptionStatus = errors.New("invalid transcription status")

	// ErrEmptyQueueEntryID is returned when a queue entry ID is missing.
	ErrEmptyQueueEntryID = errors.New("queue entry ID cannot be empty")

	// ErrEmptyQueueEntrySermonID is returned when a queue entry has no sermon ID.
	ErrEmptyQueueEntrySermonID = errors.New("queue entry sermon ID cannot be empty")

	// ErrInvalidQueueEntryStatus is returned when a queue entry status is not valid.
	ErrInvalidQueueEntryStatus = errors.New("invalid queue entry status")

	// ErrInvalidQueuePosition is returned when a queue position is not a positive integer.
	ErrInvalidQueuePosition = errors.New("queue position must be positive")

	// ErrChunkIndexOutOfRange is returned when a chunk index is negative.
	ErrChunkIndexOutOfRange = errors.New("chunk index out of range")
)
