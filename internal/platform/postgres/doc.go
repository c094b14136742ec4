// Package postgres provides PostgreSQL implementations of the store
// interfaces. The queue's concurrency invariants live here: promotion to
// the processing slot is a conditional update that exactly one concurrent
// caller can win, and progress snapshot writes are targeted JSONB merges
// so worker reports and cancellations never overwrite each other.
package postgres
