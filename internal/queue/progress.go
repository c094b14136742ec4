package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
	"github.com/openpulpit/sermon-api/internal/store"
	"github.com/openpulpit/sermon-api/internal/transcript"
)

// ChunkReport is the outcome of recording one worker chunk result.
type ChunkReport struct {
	Sermon *domain.Sermon
	// Finished is true when this chunk was the last one and the transcript
	// has been assembled and stored.
	Finished bool
	// Cancelled tells the worker to stop: the job no longer holds the
	// processing slot.
	Cancelled bool
}

// ReportChunk records one chunk result from the worker. When the report
// completes the final missing chunk, the transcript is assembled from the
// stored chunk texts and the job finishes.
//
// The returned report carries the job's cancellation state so the worker
// learns about a cancel on its very next chunk boundary.
func (s *Service) ReportChunk(
	ctx context.Context,
	sermonID uuid.UUID,
	result domain.ChunkResult,
) (*ChunkReport, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := result.Validate(); err != nil {
		return nil, newServiceError("report_chunk", "invalid chunk result", err)
	}

	if err := s.sermons.MergeChunkResult(ctx, sermonID, result); err != nil {
		return nil, newServiceError("report_chunk", "failed to record chunk result", err)
	}

	sermon, err := s.sermons.GetByID(ctx, sermonID)
	if err != nil {
		return nil, newServiceError("report_chunk", "failed to load sermon", err)
	}

	report := &ChunkReport{Sermon: sermon}

	entry, err := s.entries.FindLatestBySermon(ctx, sermonID)
	if err != nil {
		if !errors.Is(err, store.ErrQueueEntryNotFound) {
			return nil, newServiceError("report_chunk", "failed to look up job", err)
		}
		entry = nil
	}
	if entry == nil || entry.Status != domain.QueueEntryStatusProcessing {
		// The job was cancelled (or otherwise left the slot) while the
		// worker was transcribing this chunk. The chunk result itself is
		// kept for a later re-run.
		report.Cancelled = true
		log.Info("chunk recorded for inactive job, signalling worker to stop",
			"sermon_id", sermonID,
			"chunk_index", result.Index)
		return report, nil
	}

	if sermon.Progress == nil || !sermon.Progress.ChunksComplete() {
		log.Debug("chunk recorded",
			"sermon_id", sermonID,
			"chunk_index", result.Index,
			"completed", len(sermonCompleted(sermon)),
			"total", sermonTotal(sermon))
		return report, nil
	}

	text, err := transcript.Assemble(sermon.Progress.CompletedChunks, sermon.Progress.TotalChunks)
	if err != nil {
		return nil, newServiceError("report_chunk", "failed to assemble transcript", err)
	}

	if err := s.finishJob(ctx, entry.ID, sermonID, text); err != nil {
		return nil, err
	}

	sermon, err = s.sermons.GetByID(ctx, sermonID)
	if err != nil {
		return nil, newServiceError("report_chunk", "failed to reload sermon", err)
	}

	log.Info("transcription completed",
		"sermon_id", sermonID,
		"entry_id", entry.ID,
		"chunks", sermonTotal(sermon))

	report.Sermon = sermon
	report.Finished = true
	return report, nil
}

// CompleteJob finishes the processing job for a sermon. When the worker
// supplies a transcript it is stored verbatim; otherwise the transcript is
// assembled from the recorded chunk results.
func (s *Service) CompleteJob(ctx context.Context, sermonID uuid.UUID, text string) (*domain.Sermon, error) {
	sermon, err := s.sermons.GetByID(ctx, sermonID)
	if err != nil {
		return nil, newServiceError("complete", "failed to load sermon", err)
	}

	if text == "" {
		if sermon.Progress == nil || len(sermon.Progress.CompletedChunks) == 0 {
			return nil, newServiceError("complete", "no transcript and no chunk results", ErrTranscriptMissing)
		}
		// The worker declared the job done without a transcript; join
		// whatever chunk results it managed to record.
		text = strings.Join(
			transcript.OrderedTexts(sermon.Progress.CompletedChunks),
			transcript.ChunkSeparator)
	}

	entry, err := s.entries.FindActiveBySermon(ctx, sermonID)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return nil, newServiceError("complete", "no active job for sermon", ErrJobNotFound)
		}
		return nil, newServiceError("complete", "failed to look up job", err)
	}

	if err := s.finishJob(ctx, entry.ID, sermonID, text); err != nil {
		return nil, err
	}

	sermon, err = s.sermons.GetByID(ctx, sermonID)
	if err != nil {
		return nil, newServiceError("complete", "failed to reload sermon", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("job completed",
		"sermon_id", sermonID,
		"entry_id", entry.ID)

	return sermon, nil
}

// FailJob marks the processing job for a sermon as failed. Completed chunk
// results stay in place so a re-queued job can resume.
func (s *Service) FailJob(ctx context.Context, sermonID uuid.UUID, reason string) error {
	entry, err := s.entries.FindActiveBySermon(ctx, sermonID)
	if err != nil {
		if errors.Is(err, store.ErrQueueEntryNotFound) {
			return newServiceError("fail", "no active job for sermon", ErrJobNotFound)
		}
		return newServiceError("fail", "failed to look up job", err)
	}

	if reason == "" {
		reason = "transcription failed"
	}
	message := fmt.Sprintf("Transcription failed: %s", reason)

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if txErr := s.entriesTx(tx).MarkTerminal(ctx, entry.ID,
			domain.QueueEntryStatusFailed, message); txErr != nil {
			return txErr
		}
		return s.sermonsTx(tx).SetTranscriptionState(ctx, sermonID,
			domain.TranscriptionStatusFailed,
			domain.ProgressStepFailed,
			message)
	})
	if err != nil {
		return newServiceError("fail", "failed to record job failure", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Warn("job failed",
		"sermon_id", sermonID,
		"entry_id", entry.ID,
		"reason", reason)

	return nil
}

// JobStatus returns the queue entry for a job ID, for the worker's
// cancellation polling.
func (s *Service) JobStatus(ctx context.Context, jobID uuid.UUID) (*domain.QueueEntry, error) {
	entry, err := s.entries.GetByID(ctx, jobID)
	if err != nil {
		return nil, newServiceError("job_status", "failed to look up job", err)
	}
	return entry, nil
}

// finishJob stores the transcript and closes the queue entry atomically.
func (s *Service) finishJob(ctx context.Context, entryID, sermonID uuid.UUID, text string) error {
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if txErr := s.sermonsTx(tx).CompleteTranscription(ctx, sermonID, text); txErr != nil {
			return txErr
		}
		return s.entriesTx(tx).MarkTerminal(ctx, entryID,
			domain.QueueEntryStatusCompleted, "")
	})
	if err != nil {
		return newServiceError("complete", "failed to finish job", err)
	}
	return nil
}

func sermonCompleted(s *domain.Sermon) map[int]string {
	if s.Progress == nil {
		return nil
	}
	return s.Progress.CompletedChunks
}

func sermonTotal(s *domain.Sermon) int {
	if s.Progress == nil {
		return 0
	}
	return s.Progress.TotalChunks
}
