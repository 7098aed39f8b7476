package observability

// Semantic conventions shared by every component. Component-specific names
// (graph spans, server metrics) live next to the component that emits them.

// LLM attributes.
const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMFinishReason = "llm.finish_reason"
	// AttrLLMTokensTotal is the total token usage reported by the provider.
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- LLM tokens, not a credential
)

// Tool attributes.
const (
	AttrToolName     = "tool.name"
	AttrToolInput    = "tool.input"
	AttrToolOutput   = "tool.output"
	AttrToolDuration = "tool.duration"
	AttrToolError    = "tool.error"
)

// Span event names.
const (
	EventToolExecutionStart = "tool.execution.start"
	EventToolExecutionEnd   = "tool.execution.end"
	EventMemoryAppend       = "memory.append"
	EventMemoryClear        = "memory.clear"
)

// Memory attributes.
const (
	AttrMemoryMessageRole   = "memory.message.role"
	AttrMemoryMessageLength = "memory.message.length"
	AttrMemoryTotalMessages = "memory.total_messages"
)

// Checkpoint attributes.
const (
	AttrCheckpointOperation = "checkpoint.operation"
	AttrCheckpointDriver    = "checkpoint.driver"
)

// Request attributes.
const (
	AttrRequestMessagesCount = "request.messages_count"
	AttrRequestToolsCount    = "request.tools_count"
	AttrRetryAttempt         = "retry.attempt"
)

// HTTP attributes.
const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRoute            = "http.route"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// Triage attributes.
const (
	AttrThreadID    = "triage.thread_id"
	AttrWorkerName  = "triage.worker"
	AttrWorkerCount = "triage.worker_count"
	AttrNextSteps   = "triage.next_steps"
	AttrReasoning   = "triage.reasoning"
	AttrPhase       = "triage.phase"
)

// Generic attributes.
const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// Span names.
const (
	SpanLLMRequest    = "llm.request"
	SpanToolExecution = "tool.execution"
	SpanCheckpoint    = "checkpoint.operation"
	SpanHTTPRequest   = "http.request"
)

// Metric names.
const (
	MetricLLMRequestCount    = "triage.llm.request.count"
	MetricLLMRequestDuration = "triage.llm.request.duration"
	MetricToolCallCount      = "triage.tool.call.count"
	MetricCheckpointDuration = "triage.checkpoint.duration"
	MetricHTTPRequestCount   = "triage.http.request.count"
)
