// Package runtimeapi implements the client side of the Lambda runtime API:
// the data model for one invocation, the request builders and response
// parser for the three protocol operations, and a small HTTP client that is
// polymorphic over its transport.
//
// This package contains:
//   - InvocationContext and Config data models
//   - Diagnostic, the wire representation of a failed invocation
//   - Request builders and the next-event response parser
//   - Client, one method per protocol operation
//
// Most users should import the root package github.com/jdziat/simple-lambda-runtime
// instead of this package directly.
package runtimeapi

import (
	"context"
	"fmt"
	"time"
)

// InvocationContext immutably describes one unit of work fetched from the
// event source. It is created once per executor iteration and discarded when
// the iteration ends; nothing persists across iterations.
type InvocationContext struct {
	// RequestID uniquely identifies this invocation.
	RequestID string
	// Deadline is the time the function must respond by. It is informational;
	// the executor does not enforce it.
	Deadline time.Time
	// InvokedFunctionARN is the ARN the function was invoked with.
	InvokedFunctionARN string
	// TraceID is the X-Ray tracing identifier, if any.
	TraceID string
	// ClientContext is opaque client metadata forwarded by the event source.
	ClientContext string
	// CognitoIdentity is opaque identity metadata forwarded by the event source.
	CognitoIdentity string
	// Config is the environment snapshot taken when this invocation was fetched.
	Config Config
}

// Diagnostic is the wire contract for reporting a failed invocation. It is
// constructible from any error value; handlers never implement a dedicated
// serialization contract for their errors.
type Diagnostic struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// DiagnosticFromError builds a Diagnostic from a handler error. The type tag
// is the error's concrete Go type and the message its Error() rendering.
func DiagnosticFromError(err error) Diagnostic {
	return Diagnostic{
		ErrorMessage: err.Error(),
		ErrorType:    fmt.Sprintf("%T", err),
	}
}

type contextKey struct{}

// NewContext returns a context carrying the invocation description, making it
// available to handlers via FromContext.
func NewContext(parent context.Context, ic *InvocationContext) context.Context {
	return context.WithValue(parent, contextKey{}, ic)
}

// FromContext returns the InvocationContext for the running invocation, or
// nil when ctx does not belong to one.
func FromContext(ctx context.Context) *InvocationContext {
	ic, _ := ctx.Value(contextKey{}).(*InvocationContext)
	return ic
}
