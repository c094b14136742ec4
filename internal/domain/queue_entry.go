package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntryStatus represents the lifecycle state of a queue entry.
type QueueEntryStatus string

// Possible queue entry status values
const (
	QueueEntryStatusQueued     QueueEntryStatus = "queued"
	QueueEntryStatusProcessing QueueEntryStatus = "processing"
	QueueEntryStatusCompleted  QueueEntryStatus = "completed"
	QueueEntryStatusFailed     QueueEntryStatus = "failed"
	QueueEntryStatusCancelled  QueueEntryStatus = "cancelled"
)

// QueueEntry is the scheduling record for one sermon's transcription job.
// At most one entry per sermon is live (queued or processing) at a time;
// terminal entries are retained for audit.
type QueueEntry struct {
	ID           uuid.UUID        `json:"id"`
	SermonID     uuid.UUID        `json:"sermon_id"`
	Status       QueueEntryStatus `json:"status"`
	Position     int              `json:"position"`
	CreatedAt    time.Time        `json:"created_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// NewQueueEntry creates a queued entry for the given sermon at the given
// FIFO position. Returns an error if validation fails.
func NewQueueEntry(sermonID uuid.UUID, position int) (*QueueEntry, error) {
	entry := &QueueEntry{
		ID:        uuid.New(),
		SermonID:  sermonID,
		Status:    QueueEntryStatusQueued,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the QueueEntry has valid data.
func (e *QueueEntry) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyQueueEntryID
	}
	if e.SermonID == uuid.Nil {
		return ErrEmptyQueueEntrySermonID
	}
	if !isValidQueueEntryStatus(e.Status) {
		return ErrInvalidQueueEntryStatus
	}
	if e.Position < 1 {
		return ErrInvalidQueuePosition
	}
	return nil
}

// IsTerminal reports whether the entry has reached a terminal state.
// Terminal entries never transition again and are kept for audit.
func (e *QueueEntry) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// IsTerminal reports whether the status is terminal.
func (s QueueEntryStatus) IsTerminal() bool {
	switch s {
	case QueueEntryStatusCompleted, QueueEntryStatusFailed, QueueEntryStatusCancelled:
		return true
	default:
		return false
	}
}

// isValidQueueEntryStatus checks if the given status is a valid QueueEntryStatus.
func isValidQueueEntryStatus(status QueueEntryStatus) bool {
	switch status {
	case QueueEntryStatusQueued, QueueEntryStatusProcessing,
		QueueEntryStatusCompleted, QueueEntryStatusFailed, QueueEntryStatusCancelled:
		return true
	default:
		return false
	}
}
