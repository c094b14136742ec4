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

// CancelResult reports what a cancellation did.
type CancelResult struct {
	Entry *domain.QueueEntry
	// WasProcessing is true when the cancelled job held the processing
	// slot; its completed chunks remain stored for a later re-run.
	WasProcessing bool
	Message       string
}

// Cancel cancels the most recent job for the given sermon.
//
// A queued job is removed and the remaining queued entries are
// resequenced. A processing job is marked cancelled in place; the worker
// discovers this on its next chunk poll and stops. Completed chunk results
// are retained either way, so a re-queued job resumes instead of starting
// over. Jobs already in a terminal state cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, sermonID uuid.UUID) (*CancelResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := s.entries.FindLatestBySermon(ctx, sermonID)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return nil, newServiceError("cancel", "no job found for sermon", ErrJobNotFound)
		}
		return nil, newServiceError("cancel", "failed to look up job", err)
	}

	switch entry.Status {
	case domain.QueueEntryStatusProcessing:
		err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			cancelled, txErr := s.entriesTx(tx).CancelProcessing(ctx, entry.ID)
			if txErr != nil {
				return txErr
			}
			if !cancelled {
				// The job left the processing slot between lookup and
				// update. Surface it as uncancellable rather than
				// touching a terminal record.
				return fmt.Errorf("%w: job is no longer processing", ErrCannotCancel)
			}
			return s.sermonsTx(tx).SetTranscriptionState(ctx, sermonID,
				domain.TranscriptionStatusPending,
				domain.ProgressStepCancelled,
				"Transcription cancelled; completed chunks retained")
		})
		if err != nil {
			if errors.Is(err, ErrCannotCancel) {
				return nil, newServiceError("cancel", "job already finished", err)
			}
			return nil, newServiceError("cancel", "failed to cancel processing job", err)
		}

		log.Info("processing job cancelled",
			"entry_id", entry.ID,
			"sermon_id", sermonID)

		entry.Status = domain.QueueEntryStatusCancelled
		return &CancelResult{
			Entry:         entry,
			WasProcessing: true,
			Message:       "processing job cancelled; completed chunks retained",
		}, nil

	case domain.QueueEntryStatusQueued:
		err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			removed, txErr := s.entriesTx(tx).DeleteQueued(ctx, entry.ID)
			if txErr != nil {
				return txErr
			}
			if !removed {
				return fmt.Errorf("%w: job is no longer queued", ErrCannotCancel)
			}
			return s.sermonsTx(tx).SetTranscriptionState(ctx, sermonID,
				domain.TranscriptionStatusPending,
				domain.ProgressStepCancelled,
				"Removed from queue")
		})
		if err != nil {
			if errors.Is(err, ErrCannotCancel) {
				return nil, newServiceError("cancel", "job already finished", err)
			}
			return nil, newServiceError("cancel", "failed to remove queued job", err)
		}

		log.Info("queued job removed",
			"entry_id", entry.ID,
			"sermon_id", sermonID,
			"position", entry.Position)

		entry.Status = domain.QueueEntryStatusCancelled
		return &CancelResult{
			Entry:   entry,
			Message: "queued job removed",
		}, nil

	default:
		return nil, newServiceError("cancel", "job already finished",
			fmt.Errorf("%w: job is %s", ErrCannotCancel, entry.Status))
	}
}

// ClearChunks discards all stored chunk results for a sermon so the next
// transcription run starts from scratch.
func (s *Service) ClearChunks(ctx context.Context, sermonID uuid.UUID) error {
	if err := s.sermons.ClearChunks(ctx, sermonID); err != nil {
		return newServiceError("clear_chunks", "failed to clear chunk results", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("chunk results cleared",
		"sermon_id", sermonID)
	return nil
}
