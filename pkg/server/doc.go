// Package server is the HTTP/JSON surface over the job manager.
//
//	POST   /api/jobs              start a job, 202 {"job_id": ...}
//	GET    /api/jobs              list job snapshots
//	GET    /api/jobs/{id}?tail=N  one snapshot, log cut to the last N lines
//	DELETE /api/jobs/{id}         cancel, 202
//	GET    /api/jobs/{id}/result  account, tagged posts and summary; 409 until completed
//	GET    /api/history           finished jobs, newest first
//	GET    /metrics               Prometheus metrics
//	GET    /health                liveness
//
// Errors are JSON objects with a user-facing message and the error type.
package server
