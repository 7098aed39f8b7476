package middleware

import "errors"

// ErrRetryExhausted is returned when every retry attempt failed. It is joined
// with the last provider error so both can be matched with errors.Is.
var ErrRetryExhausted = errors.New("llm: all retry attempts exhausted")
