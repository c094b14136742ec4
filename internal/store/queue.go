package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
)

// QueueStore defines persistence operations for transcription queue entries.
//
// The store is the arbiter of the queue's two hard invariants: at most one
// live entry per sermon (partial unique constraint) and at most one entry
// globally in processing state (conditional update on promotion). All state
// lives in the database, so any number of concurrent callers across
// processes is safe.
type QueueStore interface {
	// CreateQueued inserts a queued entry for the sermon, computing its
	// position atomically in a single statement (one past the highest
	// position currently queued). This is the primary allocation path.
	// Returns ErrEntryExists if the sermon already has a live entry.
	CreateQueued(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error)

	// Create inserts an entry at an explicitly allocated position. Used by
	// the fallback allocation path only; the position may collide with a
	// concurrent admission, which is an accepted ordering risk, not a
	// correctness one.
	Create(ctx context.Context, entry *domain.QueueEntry) error

	// CountQueued returns the number of entries currently queued. Supports
	// the fallback position allocation path.
	CountQueued(ctx context.Context) (int, error)

	// GetByID retrieves an entry by its unique ID.
	// Returns ErrQueueEntryNotFound if no entry exists with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueEntry, error)

	// FindActiveBySermon retrieves the sermon's live (queued or processing)
	// entry, if any. Returns ErrQueueEntryNotFound when none exists.
	FindActiveBySermon(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error)

	// FindLatestBySermon retrieves the sermon's most recent entry in any
	// state. Returns ErrQueueEntryNotFound when the sermon was never
	// queued.
	FindLatestBySermon(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error)

	// GetProcessing retrieves the single entry currently processing, if any.
	// Returns ErrQueueEntryNotFound when the processing slot is empty.
	GetProcessing(ctx context.Context) (*domain.QueueEntry, error)

	// NextQueued retrieves the queued entry with the lowest position.
	// Returns ErrQueueEntryNotFound when the queue is empty.
	NextQueued(ctx context.Context) (*domain.QueueEntry, error)

	// PromoteToProcessing transitions the entry from queued to processing
	// with a conditional update: it succeeds only while the entry is still
	// queued and no other entry holds the processing slot. Returns false
	// when a concurrent caller won the slot instead.
	PromoteToProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error)

	// CancelProcessing transitions the entry from processing to cancelled
	// with a conditional update. Returns false if the entry was no longer
	// processing.
	CancelProcessing(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkTerminal moves the entry to the given terminal status, stamping
	// completed_at and recording an error message if one is given.
	MarkTerminal(
		ctx context.Context,
		id uuid.UUID,
		status domain.QueueEntryStatus,
		errorMessage string,
	) error

	// DeleteQueued removes a still-queued entry outright and resequences
	// the remaining queued entries to a contiguous ascending run from 1,
	// preserving relative order. Returns false if the entry was no longer
	// queued.
	DeleteQueued(ctx context.Context, id uuid.UUID) (bool, error)

	// ListQueued returns all queued entries in position order.
	ListQueued(ctx context.Context) ([]*domain.QueueEntry, error)

	// ListAll returns every entry, live and terminal, queued entries first
	// in position order, then the rest newest first.
	ListAll(ctx context.Context) ([]*domain.QueueEntry, error)

	// WithTx returns a store instance that runs its operations on the
	// provided transaction.
	WithTx(tx *sql.Tx) QueueStore
}
