package queue

import (
	"context"
	"errors"

	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/store"
)

// QueueSnapshot is a point-in-time view of the queue.
type QueueSnapshot struct {
	Processing *domain.QueueEntry
	Queued     []*domain.QueueEntry
	All        []*domain.QueueEntry
}

// List returns the current queue: the processing entry if any, the queued
// entries in position order, and the full history including terminal
// entries.
func (s *Service) List(ctx context.Context) (*QueueSnapshot, error) {
	snapshot := &QueueSnapshot{}

	processing, err := s.entries.GetProcessing(ctx)
	if err != nil && !errors.Is(err, store.ErrQueueEntryNotFound) {
		return nil, newServiceError("list", "failed to read processing slot", err)
	}
	snapshot.Processing = processing

	queued, err := s.entries.ListQueued(ctx)
	if err != nil {
		return nil, newServiceError("list", "failed to list queued jobs", err)
	}
	snapshot.Queued = queued

	all, err := s.entries.ListAll(ctx)
	if err != nil {
		return nil, newServiceError("list", "failed to list jobs", err)
	}
	snapshot.All = all

	return snapshot, nil
}
