package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
	"github.com/openpulpit/sermon-api/internal/store"
	"github.com/openpulpit/sermon-api/internal/worker"
)

// ProcessResult reports the outcome of one dispatcher invocation.
type ProcessResult struct {
	Entry  *domain.QueueEntry
	Sermon *domain.Sermon
	// Started is true when this call promoted the entry into the
	// processing slot (as opposed to observing one already there).
	Started bool
	// Dispatched is true when the worker accepted the handoff.
	Dispatched bool
	// Failed is true when the handoff failed and the job was recorded as
	// failed. This is a business outcome, not a call error.
	Failed  bool
	Message string
}

// Process runs one dispatch cycle: if a job is already processing it is
// returned unchanged; otherwise the lowest-position queued entry is
// promoted and handed to the worker. A nil result means the queue is
// empty.
//
// Promotion is a conditional store update, so concurrently firing triggers
// cannot start a second job: exactly one caller wins the slot and every
// other caller observes it as occupied.
func (s *Service) Process(ctx context.Context) (*ProcessResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Repeated polling never starts a second job.
	if current, err := s.entries.GetProcessing(ctx); err == nil {
		sermon, sErr := s.sermons.GetByID(ctx, current.SermonID)
		if sErr != nil {
			return nil, newServiceError("process", "failed to load processing sermon", sErr)
		}
		return &ProcessResult{
			Entry:   current,
			Sermon:  sermon,
			Message: "a job is already processing",
		}, nil
	} else if !errors.Is(err, store.ErrQueueEntryNotFound) {
		return nil, newServiceError("process", "failed to check processing slot", err)
	}

	next, err := s.entries.NextQueued(ctx)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return nil, nil
		}
		return nil, newServiceError("process", "failed to select next job", err)
	}

	won, err := s.entries.PromoteToProcessing(ctx, next.ID, time.Now().UTC())
	if err != nil {
		return nil, newServiceError("process", "failed to promote job", err)
	}
	if !won {
		// A concurrent trigger took the slot (or cancelled this entry)
		// between selection and promotion. Report whatever is processing
		// now, if anything.
		log.Debug("lost promotion race", "entry_id", next.ID)
		if current, cErr := s.entries.GetProcessing(ctx); cErr == nil {
			sermon, sErr := s.sermons.GetByID(ctx, current.SermonID)
			if sErr != nil {
				return nil, newServiceError("process", "failed to load processing sermon", sErr)
			}
			return &ProcessResult{
				Entry:   current,
				Sermon:  sermon,
				Message: "a job is already processing",
			}, nil
		}
		return nil, nil
	}

	if err := s.sermons.SetTranscriptionState(ctx, next.SermonID,
		domain.TranscriptionStatusGenerating,
		domain.ProgressStepProcessing,
		"Transcription in progress",
	); err != nil {
		return nil, newServiceError("process", "failed to update sermon progress", err)
	}

	// Re-check right before the handoff: a cancel may have landed between
	// promotion and now. In that case the worker must never be called.
	entry, err := s.entries.GetByID(ctx, next.ID)
	if err != nil {
		return nil, newServiceError("process", "failed to re-read promoted job", err)
	}
	if entry.Status == domain.QueueEntryStatusCancelled {
		log.Info("job cancelled before dispatch, skipping worker call",
			"entry_id", entry.ID)
		sermon, sErr := s.sermons.GetByID(ctx, entry.SermonID)
		if sErr != nil {
			return nil, newServiceError("process", "failed to load cancelled sermon", sErr)
		}
		return &ProcessResult{
			Entry:   entry,
			Sermon:  sermon,
			Message: "job was cancelled before dispatch",
		}, nil
	}

	sermon, err := s.sermons.GetByID(ctx, entry.SermonID)
	if err != nil {
		return nil, newServiceError("process", "failed to load sermon", err)
	}

	audioURL, ok := sermon.AudioSource()
	if !ok {
		return s.recordDispatchFailure(ctx, entry, sermon, "no usable audio source")
	}

	dispatchErr := s.gateway.Dispatch(ctx, worker.DispatchRequest{
		JobID:    entry.ID,
		SermonID: entry.SermonID,
		AudioURL: audioURL,
	})
	if dispatchErr != nil {
		// Terminal for this job, never auto-retried; the queue moves on
		// to the next entry on the following cycle.
		return s.recordDispatchFailure(ctx, entry, sermon, dispatchErr.Error())
	}

	log.Info("job started",
		"entry_id", entry.ID,
		"sermon_id", entry.SermonID,
		"position", entry.Position)

	return &ProcessResult{
		Entry:      entry,
		Sermon:     sermon,
		Started:    true,
		Dispatched: true,
		Message:    "job dispatched to worker",
	}, nil
}

// recordDispatchFailure marks the entry and its sermon failed in one
// transaction, keeping the two records mutually consistent.
func (s *Service) recordDispatchFailure(
	ctx context.Context,
	entry *domain.QueueEntry,
	sermon *domain.Sermon,
	reason string,
) (*ProcessResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	message := fmt.Sprintf("worker dispatch failed: %s", reason)
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if txErr := s.entriesTx(tx).MarkTerminal(ctx, entry.ID,
			domain.QueueEntryStatusFailed, message); txErr != nil {
			return txErr
		}
		return s.sermonsTx(tx).SetTranscriptionState(ctx, sermon.ID,
			domain.TranscriptionStatusFailed,
			domain.ProgressStepFailed,
			message)
	})
	if err != nil {
		return nil, newServiceError("process", "failed to record dispatch failure", err)
	}

	log.Warn("job failed at dispatch",
		"entry_id", entry.ID,
		"sermon_id", entry.SermonID,
		"reason", reason)

	entry.Status = domain.QueueEntryStatusFailed
	entry.ErrorMessage = message
	sermon.TranscriptionStatus = domain.TranscriptionStatusFailed

	return &ProcessResult{
		Entry:   entry,
		Sermon:  sermon,
		Started: true,
		Failed:  true,
		Message: message,
	}, nil
}
