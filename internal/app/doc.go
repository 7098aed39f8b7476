// Package app wires configuration into a running triage system: LLM clients,
// device tools, the diagnostic agents, the checkpoint store, observability and
// the graph engine. Both the HTTP server and the CLI go through [App].
package app
