// Package inmemory provides a concurrency-safe, slice-backed
// [memory.Provider]. The history lives only as long as the value.
package inmemory
