package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
	"github.com/openpulpit/sermon-api/internal/store"
)

// entryColumns is the column list shared by all queue entry queries.
const entryColumns = `id, sermon_id, status, queue_position, created_at, started_at, completed_at, error_message`

// PostgresQueueStore implements the store.QueueStore interface using
// PostgreSQL. The single-processing invariant is enforced by conditional
// updates here, never by in-process state, so concurrent dispatchers on
// different machines stay correct.
type PostgresQueueStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQueueStore creates a new PostgreSQL implementation of the
// QueueStore interface. The database connection or transaction is managed
// by the caller. If logger is nil, the process default is used.
func NewPostgresQueueStore(db store.DBTX, logger *slog.Logger) *PostgresQueueStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQueueStore{
		db:     db,
		logger: logger.With(slog.String("component", "queue_store")),
	}
}

// Ensure PostgresQueueStore implements store.QueueStore interface
var _ store.QueueStore = (*PostgresQueueStore)(nil)

// WithTx returns a store instance bound to the given transaction.
func (s *PostgresQueueStore) WithTx(tx *sql.Tx) store.QueueStore {
	return &PostgresQueueStore{db: tx, logger: s.logger}
}

// CreateQueued implements store.QueueStore.CreateQueued. The position is
// computed inside the INSERT itself, so allocation and insertion are a
// single atomic statement.
func (s *PostgresQueueStore) CreateQueued(
	ctx context.Context,
	sermonID uuid.UUID,
) (*domain.QueueEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO queue_entries (id, sermon_id, status, queue_position, created_at)
		SELECT $1, $2, $3, COALESCE(MAX(queue_position), 0) + 1, $4
		FROM queue_entries
		WHERE status = $3
		RETURNING queue_position
	`

	entry := &domain.QueueEntry{
		ID:        uuid.New(),
		SermonID:  sermonID,
		Status:    domain.QueueEntryStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.SermonID,
		domain.QueueEntryStatusQueued,
		entry.CreatedAt,
	).Scan(&entry.Position)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, store.ErrEntryExists
		}
		log.Error("failed to create queued entry",
			"sermon_id", sermonID,
			"error", err)
		return nil, MapError(err)
	}

	return entry, nil
}

// Create implements store.QueueStore.Create (fallback allocation path).
func (s *PostgresQueueStore) Create(ctx context.Context, entry *domain.QueueEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO queue_entries (id, sermon_id, status, queue_position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.SermonID,
		entry.Status,
		entry.Position,
		entry.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrEntryExists
		}
		log.Error("failed to create queue entry",
			"entry_id", entry.ID,
			"sermon_id", entry.SermonID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// CountQueued implements store.QueueStore.CountQueued.
func (s *PostgresQueueStore) CountQueued(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_entries WHERE status = $1`,
		domain.QueueEntryStatusQueued,
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// GetByID implements store.QueueStore.GetByID.
func (s *PostgresQueueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1`
	return s.queryEntry(ctx, query, id)
}

// FindActiveBySermon implements store.QueueStore.FindActiveBySermon.
func (s *PostgresQueueStore) FindActiveBySermon(
	ctx context.Context,
	sermonID uuid.UUID,
) (*domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE sermon_id = $1 AND status IN ($2, $3)
	`
	return s.queryEntry(ctx, query, sermonID,
		domain.QueueEntryStatusQueued, domain.QueueEntryStatusProcessing)
}

// FindLatestBySermon implements store.QueueStore.FindLatestBySermon.
func (s *PostgresQueueStore) FindLatestBySermon(
	ctx context.Context,
	sermonID uuid.UUID,
) (*domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE sermon_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.queryEntry(ctx, query, sermonID)
}

// GetProcessing implements store.QueueStore.GetProcessing.
func (s *PostgresQueueStore) GetProcessing(ctx context.Context) (*domain.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE status = $1`
	return s.queryEntry(ctx, query, domain.QueueEntryStatusProcessing)
}

// NextQueued implements store.QueueStore.NextQueued.
func (s *PostgresQueueStore) NextQueued(ctx context.Context) (*domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE status = $1
		ORDER BY queue_position ASC
		LIMIT 1
	`
	return s.queryEntry(ctx, query, domain.QueueEntryStatusQueued)
}

// PromoteToProcessing implements store.QueueStore.PromoteToProcessing.
//
// The guard is the compare-and-swap at the center of the whole design: the
// entry must still be queued AND the processing slot must be empty, checked
// and taken in one statement. A plain read-then-write here would let two
// concurrent triggers promote two different entries.
func (s *PostgresQueueStore) PromoteToProcessing(
	ctx context.Context,
	id uuid.UUID,
	startedAt time.Time,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE queue_entries
		SET status = $3, started_at = $2
		WHERE id = $1
			AND status = $4
			AND NOT EXISTS (
				SELECT 1 FROM queue_entries WHERE status = $3
			)
	`

	result, err := s.db.ExecContext(ctx, query,
		id,
		startedAt.UTC(),
		domain.QueueEntryStatusProcessing,
		domain.QueueEntryStatusQueued,
	)
	if err != nil {
		log.Error("failed to promote queue entry",
			"entry_id", id,
			"error", err)
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// CancelProcessing implements store.QueueStore.CancelProcessing.
func (s *PostgresQueueStore) CancelProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE queue_entries
		SET status = $3, completed_at = $2
		WHERE id = $1 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		id,
		time.Now().UTC(),
		domain.QueueEntryStatusCancelled,
		domain.QueueEntryStatusProcessing,
	)
	if err != nil {
		log.Error("failed to cancel processing entry",
			"entry_id", id,
			"error", err)
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// MarkTerminal implements store.QueueStore.MarkTerminal. Only live entries
// can be finished; a terminal entry never transitions again.
func (s *PostgresQueueStore) MarkTerminal(
	ctx context.Context,
	id uuid.UUID,
	status domain.QueueEntryStatus,
	errorMessage string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not a terminal status", store.ErrInvalidEntity, status)
	}

	query := `
		UPDATE queue_entries
		SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1 AND status IN ($5, $6)
	`

	result, err := s.db.ExecContext(ctx, query,
		id,
		status,
		errorMessage,
		time.Now().UTC(),
		domain.QueueEntryStatusQueued,
		domain.QueueEntryStatusProcessing,
	)
	if err != nil {
		log.Error("failed to mark entry terminal",
			"entry_id", id,
			"status", status,
			"error", err)
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: entry %s not live", store.ErrUpdateFailed, id)
	}

	return nil
}

// DeleteQueued implements store.QueueStore.DeleteQueued. The delete and the
// resequence run as two statements; callers wrap them in a transaction via
// WithTx so the queue is never observed mid-renumber.
func (s *PostgresQueueStore) DeleteQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_entries WHERE id = $1 AND status = $2`,
		id, domain.QueueEntryStatusQueued,
	)
	if err != nil {
		log.Error("failed to delete queued entry",
			"entry_id", id,
			"error", err)
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	// Close the gap: renumber remaining queued entries to 1..n preserving
	// their relative order.
	resequence := `
		WITH ranked AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY queue_position ASC) AS rn
			FROM queue_entries
			WHERE status = $1
		)
		UPDATE queue_entries q
		SET queue_position = ranked.rn
		FROM ranked
		WHERE q.id = ranked.id AND q.queue_position <> ranked.rn
	`
	if _, err := s.db.ExecContext(ctx, resequence, domain.QueueEntryStatusQueued); err != nil {
		log.Error("failed to resequence queued entries", "error", err)
		return false, MapError(err)
	}

	return true, nil
}

// ListQueued implements store.QueueStore.ListQueued.
func (s *PostgresQueueStore) ListQueued(ctx context.Context) ([]*domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE status = $1
		ORDER BY queue_position ASC
	`
	return s.queryEntries(ctx, query, domain.QueueEntryStatusQueued)
}

// ListAll implements store.QueueStore.ListAll.
func (s *PostgresQueueStore) ListAll(ctx context.Context) ([]*domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		ORDER BY
			CASE WHEN status IN ($1, $2) THEN 0 ELSE 1 END,
			queue_position ASC,
			created_at DESC
	`
	return s.queryEntries(ctx, query,
		domain.QueueEntryStatusQueued, domain.QueueEntryStatusProcessing)
}

// queryEntry runs a query expected to return at most one entry.
func (s *PostgresQueueStore) queryEntry(
	ctx context.Context,
	query string,
	args ...any,
) (*domain.QueueEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, query, args...)
	entry, err := scanEntry(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrQueueEntryNotFound
		}
		log.Error("failed to query queue entry", "error", err)
		return nil, MapError(err)
	}

	return entry, nil
}

// queryEntries runs a query returning any number of entries.
func (s *PostgresQueueStore) queryEntries(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.QueueEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query queue entries", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.QueueEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entries: %w", err)
	}

	return entries, nil
}

// scanEntry reads one entry from a row scanner using the entryColumns order.
func scanEntry(scan func(dest ...any) error) (*domain.QueueEntry, error) {
	var entry domain.QueueEntry
	var startedAt, completedAt sql.NullTime

	err := scan(
		&entry.ID,
		&entry.SermonID,
		&entry.Status,
		&entry.Position,
		&entry.CreatedAt,
		&startedAt,
		&completedAt,
		&entry.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		t := startedAt.Time
		entry.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		entry.CompletedAt = &t
	}

	return &entry, nil
}
