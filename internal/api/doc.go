// Package api implements the HTTP handlers for the sermon transcription
// service: admin authentication, queue management, the dispatch trigger,
// worker callback endpoints, and transcript summarization.
//
// Handlers translate between HTTP and the service layer only; all queue
// semantics live in internal/queue. Service errors are mapped to status
// codes and sanitized messages in errors.go so internal detail never
// reaches clients.
package api
