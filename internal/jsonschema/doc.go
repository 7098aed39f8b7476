// Package jsonschema provides a small JSON Schema model and a reflection based
// generator used to describe tool parameters and structured LLM output.
//
// Schemas come from two sources: Go types via [GenerateJSONSchema], and
// endpoint tool declarations loaded from configuration via [FromParameters].
package jsonschema
