// Package worker provides the gateway to the external transcription worker
// process. The handoff is fire-and-forget: the short request timeout only
// confirms the worker accepted the job, never waits for the transcription
// itself, which the worker reports back chunk by chunk through the API.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openpulpit/sermon-api/internal/config"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
)

// DefaultDispatchTimeout bounds the accept/reject round trip when no
// timeout is configured.
const DefaultDispatchTimeout = 10 * time.Second

// ErrUnconfigured is returned when no worker endpoint is configured.
// Dispatch attempts then fail immediately so the queue never stalls.
var ErrUnconfigured = errors.New("transcription worker endpoint not configured")

// ErrUnreachable is returned when the worker cannot be reached or does not
// answer within the dispatch timeout.
var ErrUnreachable = errors.New("transcription worker unreachable")

// RejectionError is returned when the worker synchronously refuses a job.
type RejectionError struct {
	StatusCode int
	Reason     string
}

// Error implements the error interface for RejectionError.
func (e *RejectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("worker rejected job (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("worker rejected job (status %d)", e.StatusCode)
}

// DispatchRequest is the handoff payload sent to the worker.
type DispatchRequest struct {
	JobID    uuid.UUID `json:"job_id"`
	SermonID uuid.UUID `json:"sermon_id"`
	AudioURL string    `json:"audio_url"`
}

// Gateway hands transcription jobs to the external worker.
type Gateway interface {
	// Dispatch asks the worker to start transcribing. A nil return means
	// the worker accepted the job; any error is a terminal dispatch
	// failure for this job.
	Dispatch(ctx context.Context, req DispatchRequest) error
}

// HTTPGateway implements Gateway over a single JSON POST to the worker's
// endpoint.
type HTTPGateway struct {
	endpoint string
	secret   string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPGateway creates a gateway from worker configuration.
// If log is nil, the process default logger is used.
func NewHTTPGateway(cfg config.WorkerConfig, log *slog.Logger) *HTTPGateway {
	if log == nil {
		log = slog.Default()
	}

	timeout := DefaultDispatchTimeout
	if cfg.DispatchTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.DispatchTimeoutSeconds) * time.Second
	}

	return &HTTPGateway{
		endpoint: cfg.Endpoint,
		secret:   cfg.SharedSecret,
		client:   &http.Client{Timeout: timeout},
		logger:   log.With(slog.String("component", "worker_gateway")),
	}
}

// Ensure HTTPGateway implements Gateway
var _ Gateway = (*HTTPGateway)(nil)

// Dispatch implements Gateway.Dispatch.
func (g *HTTPGateway) Dispatch(ctx context.Context, req DispatchRequest) error {
	log := logger.FromContextOrDefault(ctx, g.logger)

	if g.endpoint == "" {
		return ErrUnconfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.secret != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.secret)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		log.Warn("worker dispatch failed",
			"job_id", req.JobID,
			"error", err)
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := readRejectionReason(resp.Body)
		log.Warn("worker rejected dispatch",
			"job_id", req.JobID,
			"status", resp.StatusCode,
			"reason", reason)
		return &RejectionError{StatusCode: resp.StatusCode, Reason: reason}
	}

	log.Info("job dispatched to worker",
		"job_id", req.JobID,
		"sermon_id", req.SermonID)
	return nil
}

// readRejectionReason extracts a human-readable reason from a rejection
// body, accepting either {"error": "..."} or plain text.
func readRejectionReason(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}

	return strings.TrimSpace(string(raw))
}
