package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/openpulpit/sermon-api/internal/api/shared"
	"github.com/openpulpit/sermon-api/internal/queue"
)

// QueueService is the queue surface the admin endpoints expose.
type QueueService interface {
	Add(ctx context.Context, sermonID uuid.UUID) (*queue.AddResult, error)
	Cancel(ctx context.Context, sermonID uuid.UUID) (*queue.CancelResult, error)
	ClearChunks(ctx context.Context, sermonID uuid.UUID) error
	List(ctx context.Context) (*queue.QueueSnapshot, error)
	Process(ctx context.Context) (*queue.ProcessResult, error)
}

// QueueHandler handles queue management API requests.
type QueueHandler struct {
	svc       QueueService
	validator *validator.Validate
}

// NewQueueHandler creates a new QueueHandler with the given service.
func NewQueueHandler(svc QueueService) *QueueHandler {
	return &QueueHandler{
		svc:       svc,
		validator: validator.New(),
	}
}

// Add handles POST /api/queue/add.
func (h *QueueHandler) Add(w http.ResponseWriter, r *http.Request) {
	sermonID, ok := h.sermonIDFromBody(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Add(r.Context(), sermonID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AddQueueResponse{
		Message:       result.Message,
		AlreadyQueued: result.AlreadyQueued,
		Entry:         newQueueEntryResponse(result.Entry),
	})
}

// Cancel handles POST /api/queue/cancel.
func (h *QueueHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sermonID, ok := h.sermonIDFromBody(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Cancel(r.Context(), sermonID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{
		Message:       result.Message,
		WasProcessing: result.WasProcessing,
		Entry:         newQueueEntryResponse(result.Entry),
	})
}

// ClearChunks handles POST /api/queue/clear-chunks.
func (h *QueueHandler) ClearChunks(w http.ResponseWriter, r *http.Request) {
	sermonID, ok := h.sermonIDFromBody(w, r)
	if !ok {
		return
	}

	if err := h.svc.ClearChunks(r.Context(), sermonID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: "chunk results cleared",
	})
}

// List handles GET /api/queue.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, QueueListResponse{
		Processing: newQueueEntryResponse(snapshot.Processing),
		Queued:     newQueueEntryResponses(snapshot.Queued),
		All:        newQueueEntryResponses(snapshot.All),
	})
}

// Process handles POST /api/queue/process and the trigger endpoint. It runs
// one dispatch cycle; an empty queue is a success.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Process(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if result == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, ProcessResponse{
			Message: "queue is empty",
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ProcessResponse{
		Message:    result.Message,
		Started:    result.Started,
		Dispatched: result.Dispatched,
		Failed:     result.Failed,
		Entry:      newQueueEntryResponse(result.Entry),
	})
}

// sermonIDFromBody decodes and validates a SermonIDRequest, responding with
// 400 itself when the body is unusable.
func (h *QueueHandler) sermonIDFromBody(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req SermonIDRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return uuid.Nil, false
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return uuid.Nil, false
	}

	sermonID, err := uuid.Parse(req.SermonID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return uuid.Nil, false
	}

	return sermonID, true
}
