package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
)

// SermonStore defines persistence operations for sermons.
//
// Progress mutations are expressed as targeted field merges into the stored
// snapshot, never whole-record overwrites, so the worker callback path and
// the cancellation path can touch the same sermon concurrently without
// clobbering each other's writes.
type SermonStore interface {
	// Create saves a new sermon to the store.
	// Returns ErrInvalidEntity wrapping validation errors for invalid data.
	Create(ctx context.Context, sermon *domain.Sermon) error

	// GetByID retrieves a sermon by its unique ID.
	// Returns ErrSermonNotFound if no sermon exists with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sermon, error)

	// SetTranscriptionState sets the sermon's overall status and merges the
	// given step and message into its progress snapshot. Chunk maps are
	// untouched.
	SetTranscriptionState(
		ctx context.Context,
		id uuid.UUID,
		status domain.TranscriptionStatus,
		step, message string,
	) error

	// SetQueuedProgress marks the sermon as generating with a progress
	// snapshot recording its queue position.
	SetQueuedProgress(ctx context.Context, id uuid.UUID, position int) error

	// MergeChunkResult merges one worker chunk report into the progress
	// snapshot. A completed chunk removes any recorded failure for the same
	// index; a failed chunk never overwrites a completion.
	MergeChunkResult(ctx context.Context, id uuid.UUID, result domain.ChunkResult) error

	// ClearChunks empties the completed and failed chunk maps in the
	// progress snapshot without touching any other field.
	ClearChunks(ctx context.Context, id uuid.UUID) error

	// CompleteTranscription stores the final transcript and marks the
	// sermon completed.
	CompleteTranscription(ctx context.Context, id uuid.UUID, transcript string) error

	// SetSummary stores a generated summary for the sermon.
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error

	// WithTx returns a store instance that runs its operations on the
	// provided transaction.
	WithTx(tx *sql.Tx) SermonStore
}
