// Package rest runs device API calls for diagnostic tools and builds tools
// from endpoint definition files.
//
// A [Runner] without a base URL simulates every call, which keeps workers
// usable in demos and tests without lab devices. Responses are shaped for the
// model: JSON is pretty-printed, HTML is converted to Markdown and non-2xx
// answers become "Error <code>: <body>". Transport failures are returned as
// text rather than errors so the model can reason about them.
package rest
