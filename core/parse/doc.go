// Package parse turns free-form LLM output into typed Go values.
//
// Models asked for structured output still wrap JSON in Markdown fences, add a
// sentence of preamble, leave trailing commas or confuse a schema with the data
// it describes. [ParseStringAs] tolerates all of these before giving up.
package parse
