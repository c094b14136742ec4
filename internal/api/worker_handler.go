package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/openpulpit/sermon-api/internal/api/shared"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/queue"
)

// WorkerService is the callback surface the transcription worker uses.
type WorkerService interface {
	ReportChunk(ctx context.Context, sermonID uuid.UUID, result domain.ChunkResult) (*queue.ChunkReport, error)
	CompleteJob(ctx context.Context, sermonID uuid.UUID, transcriptText string) (*domain.Sermon, error)
	FailJob(ctx context.Context, sermonID uuid.UUID, reason string) error
	JobStatus(ctx context.Context, jobID uuid.UUID) (*domain.QueueEntry, error)
}

// WorkerHandler handles the worker callback endpoints. The worker reports
// each finished chunk, polls its job's status for cancellation, and closes
// the job out with a completion or failure callback.
type WorkerHandler struct {
	svc       WorkerService
	validator *validator.Validate
}

// NewWorkerHandler creates a new WorkerHandler with the given service.
func NewWorkerHandler(svc WorkerService) *WorkerHandler {
	return &WorkerHandler{
		svc:       svc,
		validator: validator.New(),
	}
}

// JobStatus handles GET /api/worker/jobs/{jobID}. The worker polls this
// between chunks to detect cancellation.
func (h *WorkerHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid job ID is required")
		return
	}

	entry, err := h.svc.JobStatus(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newQueueEntryResponse(entry))
}

// Chunk handles POST /api/worker/chunk.
func (h *WorkerHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	var req ChunkReportRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid chunk report")
		return
	}

	sermonID, err := uuid.Parse(req.SermonID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return
	}

	report, err := h.svc.ReportChunk(r.Context(), sermonID, domain.ChunkResult{
		Index:       req.Index,
		TotalChunks: req.TotalChunks,
		Text:        req.Text,
		ErrorText:   req.Error,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := ChunkReportResponse{
		Message:   "chunk recorded",
		Finished:  report.Finished,
		Cancelled: report.Cancelled,
	}
	if report.Cancelled {
		resp.Message = "job cancelled, stop transcribing"
	} else if report.Finished {
		resp.Message = "transcription complete"
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Complete handles POST /api/worker/complete.
func (h *WorkerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteJobRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return
	}

	sermonID, err := uuid.Parse(req.SermonID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return
	}

	if _, err := h.svc.CompleteJob(r.Context(), sermonID, req.Transcript); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: "job completed",
	})
}

// Fail handles POST /api/worker/fail.
func (h *WorkerHandler) Fail(w http.ResponseWriter, r *http.Request) {
	var req FailJobRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return
	}

	sermonID, err := uuid.Parse(req.SermonID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon_id is required")
		return
	}

	if err := h.svc.FailJob(r.Context(), sermonID, req.Error); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: "job marked failed",
	})
}
