package queue

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/store"
	"github.com/openpulpit/sermon-api/internal/worker"
)

// fakeSermonStore is an in-memory SermonStore mirroring the merge semantics
// of the Postgres implementation.
type fakeSermonStore struct {
	mu      sync.Mutex
	sermons map[uuid.UUID]*domain.Sermon
}

func newFakeSermonStore() *fakeSermonStore {
	return &fakeSermonStore{sermons: make(map[uuid.UUID]*domain.Sermon)}
}

func (f *fakeSermonStore) WithTx(tx *sql.Tx) store.SermonStore { return f }

func (f *fakeSermonStore) Create(ctx context.Context, sermon *domain.Sermon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sermons[sermon.ID] = cloneSermon(sermon)
	return nil
}

func (f *fakeSermonStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sermon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return nil, store.ErrSermonNotFound
	}
	return cloneSermon(s), nil
}

func (f *fakeSermonStore) SetTranscriptionState(
	ctx context.Context,
	id uuid.UUID,
	status domain.TranscriptionStatus,
	step, message string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return store.ErrSermonNotFound
	}
	s.TranscriptionStatus = status
	if s.Progress == nil {
		s.Progress = &domain.Progress{}
	}
	s.Progress.Step = step
	s.Progress.Message = message
	return nil
}

func (f *fakeSermonStore) SetQueuedProgress(ctx context.Context, id uuid.UUID, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return store.ErrSermonNotFound
	}
	s.TranscriptionStatus = domain.TranscriptionStatusGenerating
	if s.Progress == nil {
		s.Progress = &domain.Progress{}
	}
	s.Progress.Step = domain.ProgressStepQueued
	s.Progress.Position = position
	return nil
}

func (f *fakeSermonStore) MergeChunkResult(ctx context.Context, id uuid.UUID, result domain.ChunkResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return store.ErrSermonNotFound
	}
	if s.Progress == nil {
		s.Progress = &domain.Progress{}
	}
	if result.TotalChunks > 0 {
		s.Progress.TotalChunks = result.TotalChunks
	}
	if result.Failed() {
		return s.Progress.MarkChunkFailed(result.Index, result.ErrorText)
	}
	return s.Progress.MarkChunkCompleted(result.Index, result.Text)
}

func (f *fakeSermonStore) ClearChunks(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return store.ErrSermonNotFound
	}
	if s.Progress != nil {
		s.Progress.ClearChunks()
	}
	return nil
}

func (f *fakeSermonStore) CompleteTranscription(ctx context.Context, id uuid.UUID, transcript string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return store.ErrSermonNotFound
	}
	s.Transcript = transcript
	s.TranscriptionStatus = domain.TranscriptionStatusCompleted
	if s.Progress == nil {
		s.Progress = &domain.Progress{}
	}
	s.Progress.Step = domain.ProgressStepCompleted
	s.Progress.Message = "Transcription completed"
	return nil
}

func (f *fakeSermonStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sermons[id]
	if !ok {
		return store.ErrSermonNotFound
	}
	s.Summary = summary
	return nil
}

func cloneSermon(s *domain.Sermon) *domain.Sermon {
	cp := *s
	cp.Progress = s.Progress.Clone()
	return &cp
}

// fakeQueueStore is an in-memory QueueStore enforcing the same invariants
// the Postgres implementation enforces with constraints and conditional
// updates.
type fakeQueueStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.QueueEntry
	seq     map[uuid.UUID]int
	nextSeq int
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{
		entries: make(map[uuid.UUID]*domain.QueueEntry),
		seq:     make(map[uuid.UUID]int),
	}
}

func (f *fakeQueueStore) WithTx(tx *sql.Tx) store.QueueStore { return f }

func (f *fakeQueueStore) insertLocked(entry *domain.QueueEntry) error {
	for _, e := range f.entries {
		if e.SermonID == entry.SermonID && !e.IsTerminal() {
			return store.ErrEntryExists
		}
	}
	f.nextSeq++
	f.seq[entry.ID] = f.nextSeq
	f.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (f *fakeQueueStore) CreateQueued(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, e := range f.entries {
		if e.Status == domain.QueueEntryStatusQueued && e.Position > max {
			max = e.Position
		}
	}
	entry, err := domain.NewQueueEntry(sermonID, max+1)
	if err != nil {
		return nil, err
	}
	if err := f.insertLocked(entry); err != nil {
		return nil, err
	}
	return cloneEntry(entry), nil
}

func (f *fakeQueueStore) Create(ctx context.Context, entry *domain.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(entry)
}

func (f *fakeQueueStore) CountQueued(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Status == domain.QueueEntryStatusQueued {
			n++
		}
	}
	return n, nil
}

func (f *fakeQueueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, store.ErrQueueEntryNotFound
	}
	return cloneEntry(e), nil
}

func (f *fakeQueueStore) FindActiveBySermon(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.SermonID == sermonID && !e.IsTerminal() {
			return cloneEntry(e), nil
		}
	}
	return nil, store.ErrQueueEntryNotFound
}

func (f *fakeQueueStore) FindLatestBySermon(ctx context.Context, sermonID uuid.UUID) (*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.QueueEntry
	for _, e := range f.entries {
		if e.SermonID != sermonID {
			continue
		}
		if latest == nil || f.seq[e.ID] > f.seq[latest.ID] {
			latest = e
		}
	}
	if latest == nil {
		return nil, store.ErrQueueEntryNotFound
	}
	return cloneEntry(latest), nil
}

func (f *fakeQueueStore) GetProcessing(ctx context.Context) (*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Status == domain.QueueEntryStatusProcessing {
			return cloneEntry(e), nil
		}
	}
	return nil, store.ErrQueueEntryNotFound
}

func (f *fakeQueueStore) NextQueued(ctx context.Context) (*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *domain.QueueEntry
	for _, e := range f.entries {
		if e.Status != domain.QueueEntryStatusQueued {
			continue
		}
		if next == nil || e.Position < next.Position {
			next = e
		}
	}
	if next == nil {
		return nil, store.ErrQueueEntryNotFound
	}
	return cloneEntry(next), nil
}

func (f *fakeQueueStore) PromoteToProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Status == domain.QueueEntryStatusProcessing {
			return false, nil
		}
	}
	e, ok := f.entries[id]
	if !ok || e.Status != domain.QueueEntryStatusQueued {
		return false, nil
	}
	e.Status = domain.QueueEntryStatusProcessing
	t := startedAt
	e.StartedAt = &t
	return true, nil
}

func (f *fakeQueueStore) CancelProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status != domain.QueueEntryStatusProcessing {
		return false, nil
	}
	e.Status = domain.QueueEntryStatusCancelled
	now := time.Now().UTC()
	e.CompletedAt = &now
	return true, nil
}

func (f *fakeQueueStore) MarkTerminal(
	ctx context.Context,
	id uuid.UUID,
	status domain.QueueEntryStatus,
	errorMessage string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return store.ErrQueueEntryNotFound
	}
	if e.IsTerminal() {
		return store.ErrUpdateFailed
	}
	e.Status = status
	e.ErrorMessage = errorMessage
	now := time.Now().UTC()
	e.CompletedAt = &now
	return nil
}

func (f *fakeQueueStore) DeleteQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status != domain.QueueEntryStatusQueued {
		return false, nil
	}
	delete(f.entries, id)
	delete(f.seq, id)

	queued := f.queuedLocked()
	for i, q := range queued {
		q.Position = i + 1
	}
	return true, nil
}

func (f *fakeQueueStore) ListQueued(ctx context.Context) ([]*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.QueueEntry
	for _, e := range f.queuedLocked() {
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

func (f *fakeQueueStore) ListAll(ctx context.Context) ([]*domain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var live, terminal []*domain.QueueEntry
	for _, e := range f.entries {
		if e.IsTerminal() {
			terminal = append(terminal, cloneEntry(e))
		} else {
			live = append(live, cloneEntry(e))
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Position < live[j].Position })
	sort.Slice(terminal, func(i, j int) bool {
		return f.seq[terminal[i].ID] > f.seq[terminal[j].ID]
	})
	return append(live, terminal...), nil
}

func (f *fakeQueueStore) queuedLocked() []*domain.QueueEntry {
	var queued []*domain.QueueEntry
	for _, e := range f.entries {
		if e.Status == domain.QueueEntryStatusQueued {
			queued = append(queued, e)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].Position < queued[j].Position })
	return queued
}

func cloneEntry(e *domain.QueueEntry) *domain.QueueEntry {
	cp := *e
	if e.StartedAt != nil {
		t := *e.StartedAt
		cp.StartedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// fakeGateway records dispatch requests and returns a configured error.
type fakeGateway struct {
	mu       sync.Mutex
	requests []worker.DispatchRequest
	err      error
}

func (g *fakeGateway) Dispatch(ctx context.Context, req worker.DispatchRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.requests = append(g.requests, req)
	return nil
}

func (g *fakeGateway) calls() []worker.DispatchRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]worker.DispatchRequest, len(g.requests))
	copy(out, g.requests)
	return out
}
