package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/openpulpit/sermon-api/internal/domain"
)

// LoginRequest is the admin login request body.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the admin session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// SermonIDRequest is the body for operations addressed by sermon ID.
type SermonIDRequest struct {
	SermonID string `json:"sermon_id" validate:"required,uuid"`
}

// QueueEntryResponse is the wire form of a queue entry.
type QueueEntryResponse struct {
	ID           uuid.UUID  `json:"id"`
	SermonID     uuid.UUID  `json:"sermon_id"`
	Status       string     `json:"status"`
	Position     int        `json:"position,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// AddQueueResponse reports the outcome of an enqueue request.
type AddQueueResponse struct {
	Message       string              `json:"message"`
	AlreadyQueued bool                `json:"already_queued,omitempty"`
	Entry         *QueueEntryResponse `json:"entry,omitempty"`
}

// CancelResponse reports the outcome of a cancellation.
type CancelResponse struct {
	Message       string              `json:"message"`
	WasProcessing bool                `json:"was_processing,omitempty"`
	Entry         *QueueEntryResponse `json:"entry,omitempty"`
}

// MessageResponse is a plain success message.
type MessageResponse struct {
	Message string `json:"message"`
}

// QueueListResponse is the queue snapshot returned by the list endpoint.
type QueueListResponse struct {
	Processing *QueueEntryResponse  `json:"processing,omitempty"`
	Queued     []QueueEntryResponse `json:"queued"`
	All        []QueueEntryResponse `json:"all"`
}

// ProcessResponse reports the outcome of a dispatch cycle.
type ProcessResponse struct {
	Message    string              `json:"message"`
	Started    bool                `json:"started,omitempty"`
	Dispatched bool                `json:"dispatched,omitempty"`
	Failed     bool                `json:"failed,omitempty"`
	Entry      *QueueEntryResponse `json:"entry,omitempty"`
}

// ChunkReportRequest is one worker chunk callback.
type ChunkReportRequest struct {
	SermonID    string `json:"sermon_id"    validate:"required,uuid"`
	Index       int    `json:"index"        validate:"gte=0"`
	TotalChunks int    `json:"total_chunks" validate:"gte=0"`
	Text        string `json:"text"`
	Error       string `json:"error"`
}

// ChunkReportResponse tells the worker how to proceed after a chunk report.
type ChunkReportResponse struct {
	Message   string `json:"message"`
	Finished  bool   `json:"finished,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// CompleteJobRequest is the worker's final completion callback. Transcript
// may be empty, in which case the stored chunk results are assembled.
type CompleteJobRequest struct {
	SermonID   string `json:"sermon_id" validate:"required,uuid"`
	Transcript string `json:"transcript"`
}

// FailJobRequest is the worker's failure callback.
type FailJobRequest struct {
	SermonID string `json:"sermon_id" validate:"required,uuid"`
	Error    string `json:"error"`
}

// SummaryResponse carries a generated sermon summary.
type SummaryResponse struct {
	SermonID uuid.UUID `json:"sermon_id"`
	Summary  string    `json:"summary"`
}

// newQueueEntryResponse converts a domain entry to its wire form.
func newQueueEntryResponse(e *domain.QueueEntry) *QueueEntryResponse {
	if e == nil {
		return nil
	}
	return &QueueEntryResponse{
		ID:           e.ID,
		SermonID:     e.SermonID,
		Status:       string(e.Status),
		Position:     e.Position,
		CreatedAt:    e.CreatedAt,
		StartedAt:    e.StartedAt,
		CompletedAt:  e.CompletedAt,
		ErrorMessage: e.ErrorMessage,
	}
}

// newQueueEntryResponses converts a slice of entries, returning an empty
// slice rather than nil so the JSON field is always an array.
func newQueueEntryResponses(entries []*domain.QueueEntry) []QueueEntryResponse {
	out := make([]QueueEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, *newQueueEntryResponse(e))
	}
	return out
}
