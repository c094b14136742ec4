package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/queue"
)

// fakeQueueService returns canned results for handler tests.
type fakeQueueService struct {
	addResult     *queue.AddResult
	addErr        error
	cancelResult  *queue.CancelResult
	cancelErr     error
	clearErr      error
	snapshot      *queue.QueueSnapshot
	listErr       error
	processResult *queue.ProcessResult
	processErr    error

	lastSermonID uuid.UUID
}

func (f *fakeQueueService) Add(ctx context.Context, sermonID uuid.UUID) (*queue.AddResult, error) {
	f.lastSermonID = sermonID
	return f.addResult, f.addErr
}

func (f *fakeQueueService) Cancel(ctx context.Context, sermonID uuid.UUID) (*queue.CancelResult, error) {
	f.lastSermonID = sermonID
	return f.cancelResult, f.cancelErr
}

func (f *fakeQueueService) ClearChunks(ctx context.Context, sermonID uuid.UUID) error {
	f.lastSermonID = sermonID
	return f.clearErr
}

func (f *fakeQueueService) List(ctx context.Context) (*queue.QueueSnapshot, error) {
	return f.snapshot, f.listErr
}

func (f *fakeQueueService) Process(ctx context.Context) (*queue.ProcessResult, error) {
	return f.processResult, f.processErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func testEntry(status domain.QueueEntryStatus, position int) *domain.QueueEntry {
	entry, err := domain.NewQueueEntry(uuid.New(), 1)
	if err != nil {
		panic(err)
	}
	entry.Status = status
	entry.Position = position
	return entry
}

func TestQueueHandlerAdd(t *testing.T) {
	t.Parallel()

	t.Run("returns the created entry", func(t *testing.T) {
		t.Parallel()
		entry := testEntry(domain.QueueEntryStatusQueued, 1)
		svc := &fakeQueueService{addResult: &queue.AddResult{
			Entry:   entry,
			Message: "queued at position 1",
		}}
		h := NewQueueHandler(svc)

		sermonID := uuid.New()
		w := postJSON(t, h.Add, "/api/queue/add", map[string]string{
			"sermon_id": sermonID.String(),
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, sermonID, svc.lastSermonID)

		var resp AddQueueResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, entry.ID, resp.Entry.ID)
		assert.Equal(t, 1, resp.Entry.Position)
	})

	t.Run("an idempotent re-add is still a 200", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{addResult: &queue.AddResult{
			Entry:         testEntry(domain.QueueEntryStatusQueued, 2),
			AlreadyQueued: true,
			Message:       "sermon is already in the queue",
		}}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Add, "/api/queue/add", map[string]string{
			"sermon_id": uuid.New().String(),
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp AddQueueResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.AlreadyQueued)
	})

	t.Run("a transcript no-op returns no entry", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{addResult: &queue.AddResult{
			Message: "sermon already has a transcript",
		}}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Add, "/api/queue/add", map[string]string{
			"sermon_id": uuid.New().String(),
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp AddQueueResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.Entry)
	})

	t.Run("unknown sermon is a 404", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{addErr: queue.ErrSermonNotFound}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Add, "/api/queue/add", map[string]string{
			"sermon_id": uuid.New().String(),
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing audio is a 400", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{addErr: queue.ErrNoAudioSource}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Add, "/api/queue/add", map[string]string{
			"sermon_id": uuid.New().String(),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a malformed sermon ID", func(t *testing.T) {
		t.Parallel()
		h := NewQueueHandler(&fakeQueueService{})

		w := postJSON(t, h.Add, "/api/queue/add", map[string]string{
			"sermon_id": "not-a-uuid",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a non-JSON body", func(t *testing.T) {
		t.Parallel()
		h := NewQueueHandler(&fakeQueueService{})

		r := httptest.NewRequest(http.MethodPost, "/api/queue/add", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		h.Add(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQueueHandlerCancel(t *testing.T) {
	t.Parallel()

	t.Run("cancels a job", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{cancelResult: &queue.CancelResult{
			Entry:         testEntry(domain.QueueEntryStatusCancelled, 0),
			WasProcessing: true,
			Message:       "processing job cancelled; completed chunks retained",
		}}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Cancel, "/api/queue/cancel", map[string]string{
			"sermon_id": uuid.New().String(),
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp CancelResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.WasProcessing)
	})

	t.Run("a terminal job is a 400 naming its state", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{
			cancelErr: fmt.Errorf("%w: job is completed", queue.ErrCannotCancel),
		}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Cancel, "/api/queue/cancel", map[string]string{
			"sermon_id": uuid.New().String(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "completed")
	})

	t.Run("never queued is a 404", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{cancelErr: queue.ErrJobNotFound}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Cancel, "/api/queue/cancel", map[string]string{
			"sermon_id": uuid.New().String(),
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQueueHandlerList(t *testing.T) {
	t.Parallel()

	processing := testEntry(domain.QueueEntryStatusProcessing, 0)
	queued := testEntry(domain.QueueEntryStatusQueued, 1)
	svc := &fakeQueueService{snapshot: &queue.QueueSnapshot{
		Processing: processing,
		Queued:     []*domain.QueueEntry{queued},
		All:        []*domain.QueueEntry{processing, queued},
	}}
	h := NewQueueHandler(svc)

	r := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	w := httptest.NewRecorder()
	h.List(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp QueueListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Processing)
	assert.Equal(t, processing.ID, resp.Processing.ID)
	require.Len(t, resp.Queued, 1)
	assert.Len(t, resp.All, 2)
}

func TestQueueHandlerProcess(t *testing.T) {
	t.Parallel()

	t.Run("reports a dispatched job", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{processResult: &queue.ProcessResult{
			Entry:      testEntry(domain.QueueEntryStatusProcessing, 0),
			Started:    true,
			Dispatched: true,
			Message:    "job dispatched to worker",
		}}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Process, "/api/queue/process", struct{}{})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ProcessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Started)
		assert.True(t, resp.Dispatched)
	})

	t.Run("an empty queue is a 200", func(t *testing.T) {
		t.Parallel()
		h := NewQueueHandler(&fakeQueueService{})

		w := postJSON(t, h.Process, "/api/queue/process", struct{}{})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ProcessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "queue is empty", resp.Message)
		assert.False(t, resp.Started)
	})

	t.Run("a failed dispatch is still a 200", func(t *testing.T) {
		t.Parallel()
		svc := &fakeQueueService{processResult: &queue.ProcessResult{
			Entry:   testEntry(domain.QueueEntryStatusFailed, 0),
			Started: true,
			Failed:  true,
			Message: "worker dispatch failed: worker busy",
		}}
		h := NewQueueHandler(svc)

		w := postJSON(t, h.Process, "/api/queue/process", struct{}{})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ProcessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Failed)
	})
}
