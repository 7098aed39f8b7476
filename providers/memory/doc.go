// Package memory defines the Provider interface for conversation history.
// Diagnostic agents keep their tool loop transcript in a Provider; the
// bundled implementation lives in the sibling package inmemory.
package memory
