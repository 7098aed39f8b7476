// Package orchestrator provides the LLM-backed collaborators of the triage
// graph: the [Planner] that picks diagnostic agents once the incident data is
// complete, and the [Summarizer] that turns the agent briefs into a root-cause
// report. Both request structured output through core/client and never touch
// graph state directly.
package orchestrator
