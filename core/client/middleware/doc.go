// Package middleware provides the standard wrappers for LLM calls made by the
// triage nodes. Each constructor returns a [client.Middleware] ready for
// [client.WithMiddleware].
//
//   - [NewTimeoutMiddleware]: per-request deadline.
//   - [NewRetryMiddleware]: exponential backoff with jitter on 429/5xx.
//   - [NewLoggingMiddleware]: slog entries before and after each call.
//
// The first middleware passed to WithMiddleware is the outermost:
//
//	c, err := client.New(provider,
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(60*time.Second),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{}),
//	        middleware.NewLoggingMiddleware(logger, middleware.LogLevelStandard),
//	    ),
//	)
//
// A request travels Timeout → Retry → Logging → Provider, so the timeout
// bounds all retry attempts together.
package middleware
