// Package ai defines the vendor-neutral chat model types and the [Provider]
// interface that LLM backends implement.
//
// The triage engine never talks to a vendor directly: the planner, the
// summarizer and the diagnostic agents build a [ChatRequest], send it through
// core/client, and read a [ChatResponse]. Vendors live in subpackages
// (openai, gemini) and are selected by name through [NewProvider].
package ai
