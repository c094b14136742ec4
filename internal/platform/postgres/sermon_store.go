package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
	"github.com/openpulpit/sermon-api/internal/store"
)

// PostgresSermonStore implements the store.SermonStore interface
// using a PostgreSQL database as the storage backend. The progress
// snapshot is a JSONB column mutated with targeted merges only.
type PostgresSermonStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSermonStore creates a new PostgreSQL implementation of the
// SermonStore interface. The database connection or transaction is managed
// by the caller. If logger is nil, the process default is used.
func NewPostgresSermonStore(db store.DBTX, logger *slog.Logger) *PostgresSermonStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSermonStore{
		db:     db,
		logger: logger.With(slog.String("component", "sermon_store")),
	}
}

// Ensure PostgresSermonStore implements store.SermonStore interface
var _ store.SermonStore = (*PostgresSermonStore)(nil)

// WithTx returns a store instance bound to the given transaction.
func (s *PostgresSermonStore) WithTx(tx *sql.Tx) store.SermonStore {
	return &PostgresSermonStore{db: tx, logger: s.logger}
}

// Create implements store.SermonStore.Create.
func (s *PostgresSermonStore) Create(ctx context.Context, sermon *domain.Sermon) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sermon.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	progressJSON, err := marshalProgress(sermon.Progress)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sermons (id, title, speaker, audio_url, backup_audio_url,
			transcription_status, progress, transcript, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now().UTC()
	if sermon.CreatedAt.IsZero() {
		sermon.CreatedAt = now
	}
	sermon.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, query,
		sermon.ID,
		sermon.Title,
		sermon.Speaker,
		sermon.AudioURL,
		sermon.BackupAudioURL,
		sermon.TranscriptionStatus,
		progressJSON,
		sermon.Transcript,
		sermon.Summary,
		sermon.CreatedAt,
		sermon.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create sermon",
			"sermon_id", sermon.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.SermonStore.GetByID.
func (s *PostgresSermonStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sermon, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, title, speaker, audio_url, backup_audio_url,
			transcription_status, progress, transcript, summary, created_at, updated_at
		FROM sermons
		WHERE id = $1
	`

	var sermon domain.Sermon
	var progressJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sermon.ID,
		&sermon.Title,
		&sermon.Speaker,
		&sermon.AudioURL,
		&sermon.BackupAudioURL,
		&sermon.TranscriptionStatus,
		&progressJSON,
		&sermon.Transcript,
		&sermon.Summary,
		&sermon.CreatedAt,
		&sermon.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrSermonNotFound
		}
		log.Error("failed to get sermon",
			"sermon_id", id,
			"error", err)
		return nil, MapError(err)
	}

	progress, err := unmarshalProgress(progressJSON)
	if err != nil {
		return nil, err
	}
	sermon.Progress = progress

	return &sermon, nil
}

// SetTranscriptionState implements store.SermonStore.SetTranscriptionState.
// The step and message are merged into the top level of the progress
// snapshot; chunk maps are left alone.
func (s *PostgresSermonStore) SetTranscriptionState(
	ctx context.Context,
	id uuid.UUID,
	status domain.TranscriptionStatus,
	step, message string,
) error {
	query := `
		UPDATE sermons
		SET transcription_status = $2,
			progress = COALESCE(progress, '{}'::jsonb)
				|| jsonb_build_object('step', $3::text, 'message', $4::text),
			updated_at = $5
		WHERE id = $1
	`

	return s.execOnSermon(ctx, "set transcription state", query,
		id, status, step, message, time.Now().UTC())
}

// SetQueuedProgress implements store.SermonStore.SetQueuedProgress.
func (s *PostgresSermonStore) SetQueuedProgress(ctx context.Context, id uuid.UUID, position int) error {
	query := `
		UPDATE sermons
		SET transcription_status = $2,
			progress = COALESCE(progress, '{}'::jsonb)
				|| jsonb_build_object(
					'step', 'queued',
					'message', $3::text,
					'position', $4::int),
			updated_at = $5
		WHERE id = $1
	`

	message := fmt.Sprintf("Queued for transcription at position %d", position)
	return s.execOnSermon(ctx, "set queued progress", query,
		id, domain.TranscriptionStatusGenerating, message, position, time.Now().UTC())
}

// MergeChunkResult implements store.SermonStore.MergeChunkResult.
//
// A completed chunk is written into completedChunks and its index removed
// from failedChunks; a failed chunk is written into failedChunks only when
// the index has no completion yet. Both are single-statement key-scoped
// merges, so concurrent worker reports and cancellations compose.
func (s *PostgresSermonStore) MergeChunkResult(
	ctx context.Context,
	id uuid.UUID,
	result domain.ChunkResult,
) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if result.Failed() {
		query := `
			UPDATE sermons
			SET progress = jsonb_set(
					COALESCE(progress, '{}'::jsonb)
						|| CASE WHEN $3::int > 0
							THEN jsonb_build_object('totalChunks', $3::int)
							ELSE '{}'::jsonb END,
					'{failedChunks}',
					CASE WHEN COALESCE(progress -> 'completedChunks', '{}'::jsonb) ? $2::text
						THEN COALESCE(progress -> 'failedChunks', '{}'::jsonb)
						ELSE COALESCE(progress -> 'failedChunks', '{}'::jsonb)
							|| jsonb_build_object($2::text, $4::text)
					END),
				updated_at = $5
			WHERE id = $1
		`
		return s.execOnSermon(ctx, "merge failed chunk", query,
			id, fmt.Sprint(result.Index), result.TotalChunks, result.ErrorText, time.Now().UTC())
	}

	query := `
		UPDATE sermons
		SET progress = jsonb_set(
				jsonb_set(
					COALESCE(progress, '{}'::jsonb)
						|| CASE WHEN $3::int > 0
							THEN jsonb_build_object('totalChunks', $3::int)
							ELSE '{}'::jsonb END,
					'{completedChunks}',
					COALESCE(progress -> 'completedChunks', '{}'::jsonb)
						|| jsonb_build_object($2::text, $4::text)),
				'{failedChunks}',
				COALESCE(progress -> 'failedChunks', '{}'::jsonb) - $2::text),
			updated_at = $5
		WHERE id = $1
	`
	return s.execOnSermon(ctx, "merge completed chunk", query,
		id, fmt.Sprint(result.Index), result.TotalChunks, result.Text, time.Now().UTC())
}

// ClearChunks implements store.SermonStore.ClearChunks.
func (s *PostgresSermonStore) ClearChunks(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sermons
		SET progress = (COALESCE(progress, '{}'::jsonb) - 'completedChunks') - 'failedChunks',
			updated_at = $2
		WHERE id = $1
	`

	return s.execOnSermon(ctx, "clear chunks", query, id, time.Now().UTC())
}

// CompleteTranscription implements store.SermonStore.CompleteTranscription.
func (s *PostgresSermonStore) CompleteTranscription(
	ctx context.Context,
	id uuid.UUID,
	transcriptText string,
) error {
	query := `
		UPDATE sermons
		SET transcription_status = $2,
			transcript = $3,
			progress = COALESCE(progress, '{}'::jsonb)
				|| jsonb_build_object('step', $4::text, 'message', $5::text),
			updated_at = $6
		WHERE id = $1
	`

	return s.execOnSermon(ctx, "complete transcription", query,
		id,
		domain.TranscriptionStatusCompleted,
		transcriptText,
		domain.ProgressStepCompleted,
		"Transcription complete",
		time.Now().UTC())
}

// SetSummary implements store.SermonStore.SetSummary.
func (s *PostgresSermonStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	query := `UPDATE sermons SET summary = $2, updated_at = $3 WHERE id = $1`
	return s.execOnSermon(ctx, "set summary", query, id, summary, time.Now().UTC())
}

// execOnSermon runs a single-sermon UPDATE, mapping a zero row count to
// ErrSermonNotFound.
func (s *PostgresSermonStore) execOnSermon(
	ctx context.Context,
	operation, query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+operation,
			"sermon_id", args[0],
			"error", err)
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrSermonNotFound
	}

	return nil
}

// marshalProgress serializes a progress snapshot for storage. A nil
// snapshot is stored as an empty object.
func marshalProgress(p *domain.Progress) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return data, nil
}

// unmarshalProgress deserializes a stored progress snapshot. An empty
// object is returned as nil.
func unmarshalProgress(data []byte) (*domain.Progress, error) {
	if len(data) == 0 || string(data) == "{}" {
		return nil, nil
	}
	var p domain.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &p, nil
}
