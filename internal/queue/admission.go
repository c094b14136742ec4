package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
	"github.com/openpulpit/sermon-api/internal/store"
)

// AddResult reports the outcome of an admission attempt.
type AddResult struct {
	Sermon *domain.Sermon
	// Entry is nil when the sermon already has a usable transcript and
	// nothing was enqueued.
	Entry *domain.QueueEntry
	// AlreadyQueued is true when an existing live entry was returned
	// instead of a new one being created.
	AlreadyQueued bool
	Message       string
}

// Add enqueues a sermon for transcription. The operation is idempotent:
// re-adding a sermon with a live entry returns that entry, and a sermon
// that already has a usable transcript is a successful no-op.
func (s *Service) Add(ctx context.Context, sermonID uuid.UUID) (*AddResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sermon, err := s.sermons.GetByID(ctx, sermonID)
	if err != nil {
		return nil, newServiceError("add", "failed to load sermon", err)
	}

	if sermon.HasUsableTranscript() {
		log.Info("sermon already transcribed, skipping enqueue",
			"sermon_id", sermonID)
		return &AddResult{
			Sermon:  sermon,
			Message: "sermon already has a transcript",
		}, nil
	}

	if _, ok := sermon.AudioSource(); !ok {
		return nil, fmt.Errorf("%w: sermon %s", ErrNoAudioSource, sermonID)
	}

	if existing, err := s.entries.FindActiveBySermon(ctx, sermonID); err == nil {
		log.Info("sermon already has a live queue entry",
			"sermon_id", sermonID,
			"entry_id", existing.ID,
			"status", existing.Status)
		return &AddResult{
			Sermon:        sermon,
			Entry:         existing,
			AlreadyQueued: true,
			Message:       "sermon is already in the queue",
		}, nil
	} else if !errors.Is(err, store.ErrQueueEntryNotFound) {
		return nil, newServiceError("add", "failed to check for live entry", err)
	}

	entry, err := s.enqueue(ctx, sermonID)
	if err != nil {
		if errors.Is(err, store.ErrEntryExists) {
			// Lost an admission race; the other caller's entry wins.
			existing, findErr := s.entries.FindActiveBySermon(ctx, sermonID)
			if findErr != nil {
				return nil, newServiceError("add", "failed to load racing entry", findErr)
			}
			return &AddResult{
				Sermon:        sermon,
				Entry:         existing,
				AlreadyQueued: true,
				Message:       "sermon is already in the queue",
			}, nil
		}
		return nil, newServiceError("add", "failed to enqueue sermon", err)
	}

	log.Info("sermon enqueued for transcription",
		"sermon_id", sermonID,
		"entry_id", entry.ID,
		"position", entry.Position)

	sermon.TranscriptionStatus = domain.TranscriptionStatusGenerating
	return &AddResult{
		Sermon:  sermon,
		Entry:   entry,
		Message: fmt.Sprintf("queued at position %d", entry.Position),
	}, nil
}

// enqueue creates the queue entry and marks the sermon as generating in a
// single transaction, so a failure on either side leaves no half-written
// state. The primary path computes the position atomically inside the
// insert; if it errors for infrastructure reasons, the count-based
// fallback runs in a fresh transaction.
func (s *Service) enqueue(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error) {
	var entry *domain.QueueEntry

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		entry, txErr = s.entriesTx(tx).CreateQueued(ctx, sermonID)
		if txErr != nil {
			return txErr
		}
		return s.sermonsTx(tx).SetQueuedProgress(ctx, sermonID, entry.Position)
	})
	if err == nil {
		return entry, nil
	}
	if errors.Is(err, store.ErrEntryExists) {
		return nil, err
	}

	s.logger.Warn("atomic position allocation failed, falling back to count",
		"sermon_id", sermonID,
		"error", err)

	// Fallback: count-then-insert. Not race-free under concurrent
	// admission; a collision costs relative ordering only, never the
	// single-processing invariant, which selection re-derives from the
	// lowest queued position.
	fallbackErr := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entriesTx(tx)

		count, txErr := entries.CountQueued(ctx)
		if txErr != nil {
			return txErr
		}

		newEntry, txErr := domain.NewQueueEntry(sermonID, count+1)
		if txErr != nil {
			return txErr
		}
		if txErr := entries.Create(ctx, newEntry); txErr != nil {
			return txErr
		}

		entry = newEntry
		return s.sermonsTx(tx).SetQueuedProgress(ctx, sermonID, entry.Position)
	})
	if fallbackErr != nil {
		// Fail closed: no entry was created by either path.
		return nil, fmt.Errorf("position allocation failed (primary: %v): %w", err, fallbackErr)
	}

	return entry, nil
}
