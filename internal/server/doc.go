// Package server exposes triage runs over HTTP.
//
// Routes:
//
//	GET  /health   liveness probe
//	GET  /config   orchestrator model and sub-agent names
//	POST /chat     runs the graph and streams its events as Server-Sent Events
//	GET  /metrics  Prometheus exposition
//
// A /chat stream carries thought, routing and triage_report events, and a
// final error event when the run fails. The thread id used for checkpoints is
// returned in the X-Thread-ID header.
package server
