package client

import (
	"context"
	"time"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// NewObservabilityMiddleware wraps each provider call in a span and records
// request count and duration metrics. The span and observer are stored in the
// context so providers can attach HTTP events to the span.
//
// New prepends it automatically when WithObserver is given, so it observes the
// final outcome after retries and timeouts.
func NewObservabilityMiddleware(observer observability.Provider, providerName, defaultModel string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			model := effectiveModel(request.Model, defaultModel)
			attrs := []observability.Attribute{
				observability.String(observability.AttrLLMProvider, providerName),
				observability.String(observability.AttrLLMModel, model),
			}

			ctx, span := observer.StartSpan(ctx, observability.SpanLLMRequest, attrs...)
			defer span.End()
			ctx = observability.ContextWithSpan(ctx, span)
			ctx = observability.ContextWithObserver(ctx, observer)

			observer.Debug(ctx, "llm send",
				observability.String(observability.AttrLLMModel, model),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
				observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
			)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			observer.Histogram(observability.MetricLLMRequestDuration).Record(ctx, elapsed.Seconds(), attrs...)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, "llm send failed")
				observer.Error(ctx, "llm send failed",
					observability.Error(err),
					observability.Duration(observability.AttrDuration, elapsed),
					observability.String(observability.AttrLLMModel, model),
				)
				observer.Counter(observability.MetricLLMRequestCount).Add(ctx, 1,
					append(attrs, observability.String(observability.AttrStatus, "error"))...)
				return nil, err
			}

			resultAttrs := []observability.Attribute{
				observability.String(observability.AttrLLMFinishReason, response.FinishReason),
				observability.Duration(observability.AttrDuration, elapsed),
			}
			if response.Usage != nil {
				resultAttrs = append(resultAttrs, observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens))
			}
			span.SetAttributes(resultAttrs...)
			span.SetStatus(observability.StatusOK, "")

			observer.Debug(ctx, "llm send completed", resultAttrs...)
			observer.Counter(observability.MetricLLMRequestCount).Add(ctx, 1,
				append(attrs, observability.String(observability.AttrStatus, "success"))...)

			return response, nil
		}
	}
}

func effectiveModel(requestModel, defaultModel string) string {
	if requestModel != "" {
		return requestModel
	}
	if defaultModel != "" {
		return defaultModel
	}
	return "unknown"
}
