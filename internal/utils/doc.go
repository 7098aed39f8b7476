// Package utils provides shared low-level helpers: HTTP round-trips for LLM
// provider APIs and device REST endpoints, and string helpers used when
// logging or echoing payloads.
//
// Key entry points: [DoRequest] for arbitrary HTTP calls whose body the caller
// interprets, and [DoPostSync] for JSON-in/JSON-out provider calls.
package utils
