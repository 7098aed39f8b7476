// Package tool defines the callable tools handed to diagnostic workers.
//
// A [Tool] binds a name and description to a typed Go function and derives the
// parameter schema from the input type. Tools whose parameters are only known
// at runtime (endpoint files) implement [GenericTool] directly. A [Catalog] is
// the per-worker registry the ReAct loop dispatches tool calls through.
package tool
