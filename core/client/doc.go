// Package client sits between the LLM providers and the triage nodes. A Client
// is stateless with respect to conversation: callers own the message history
// (the graph state does) and pass it on every call. The Client adds the system
// prompt, default model, sampling settings and a middleware chain (retry,
// timeout, logging, observability) around the provider.
//
// For typed answers such as routing decisions and triage reports use
// [NewStructured] or [FromBaseClient].
package client
