// Package queue implements the transcription job queue: admission control,
// single-slot dispatch, chunk progress tracking, and cooperative
// cancellation. All queue state lives in the persistent store, so the
// service itself is stateless and safe to invoke concurrently from any
// number of processes.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/openpulpit/sermon-api/internal/store"
	"github.com/openpulpit/sermon-api/internal/worker"
)

// Service orchestrates the transcription queue over the sermon and queue
// entry stores and the external worker gateway.
type Service struct {
	db      *sql.DB
	sermons store.SermonStore
	entries store.QueueStore
	gateway worker.Gateway
	logger  *slog.Logger

	// runTx executes fn within a database transaction. Overridable in
	// tests where no real database backs the stores.
	runTx func(ctx context.Context, fn store.TxFn) error
}

// NewService creates a queue Service.
// It returns an error if any required dependency is nil.
func NewService(
	db *sql.DB,
	sermons store.SermonStore,
	entries store.QueueStore,
	gateway worker.Gateway,
	logger *slog.Logger,
) (*Service, error) {
	if sermons == nil {
		return nil, errors.New("sermon store cannot be nil")
	}
	if entries == nil {
		return nil, errors.New("queue store cannot be nil")
	}
	if gateway == nil {
		return nil, errors.New("worker gateway cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		db:      db,
		sermons: sermons,
		entries: entries,
		gateway: gateway,
		logger:  logger.With(slog.String("component", "queue_service")),
	}
	s.runTx = func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, s.db, fn)
	}

	return s, nil
}

// sermonsTx returns the sermon store bound to tx, or the plain store when
// tx is nil (test fakes run without transactions).
func (s *Service) sermonsTx(tx *sql.Tx) store.SermonStore {
	if tx == nil {
		return s.sermons
	}
	return s.sermons.WithTx(tx)
}

// entriesTx returns the queue store bound to tx, or the plain store when
// tx is nil.
func (s *Service) entriesTx(tx *sql.Tx) store.QueueStore {
	if tx == nil {
		return s.entries
	}
	return s.entries.WithTx(tx)
}
