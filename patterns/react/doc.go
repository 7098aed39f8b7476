// Package react implements the ReAct (Reasoning + Acting) loop used by the
// diagnostic agents. The model alternates between reasoning and tool calls
// until it answers without requesting a tool, or the iteration limit is hit.
//
// The main entry point is [New], which wraps a configured [client.Client] and
// a [tool.Catalog]. [ReAct.Execute] runs the loop over a conversation and
// [ReAct.Run] adapts it to the graph worker contract: the answer becomes the
// worker summary and the transcript is kept in the raw data. Each tool call
// is reported to the graph event emitter. Behavior can be tuned with
// [WithMaxIterations] and [WithStopOnError].
package react
