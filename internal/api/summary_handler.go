package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openpulpit/sermon-api/internal/api/shared"
)

// SummaryService generates and stores sermon summaries.
type SummaryService interface {
	SummarizeSermon(ctx context.Context, sermonID uuid.UUID) (string, error)
}

// SummaryHandler handles transcript summarization requests.
type SummaryHandler struct {
	svc SummaryService
}

// NewSummaryHandler creates a new SummaryHandler with the given service.
func NewSummaryHandler(svc SummaryService) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

// Summarize handles POST /api/sermons/{id}/summarize.
func (h *SummaryHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	sermonID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A valid sermon ID is required")
		return
	}

	summaryText, err := h.svc.SummarizeSermon(r.Context(), sermonID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SummaryResponse{
		SermonID: sermonID,
		Summary:  summaryText,
	})
}
