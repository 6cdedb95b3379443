// Package lambda provides a runtime for functions invoked through the Lambda
// runtime API: it polls the event source for one invocation at a time,
// dispatches it to a user-supplied handler, and reports the outcome back.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	func main() {
//		if err := lambda.Start(handle); err != nil {
//			log.Fatal(err)
//		}
//	}
//
//	func handle(ctx context.Context, name string) (string, error) {
//		return "hello " + name, nil
//	}
//
// A failing invocation is reported to the event source and the process stays
// alive for the next one; Start only returns on a fatal transport, protocol,
// or configuration error.
package lambda

import (
	"context"

	"github.com/jdziat/simple-lambda-runtime/pkg/executor"
	"github.com/jdziat/simple-lambda-runtime/pkg/handler"
	"github.com/jdziat/simple-lambda-runtime/pkg/runtimeapi"
)

// Type aliases re-exported from pkg/
type (
	// Handler processes the payload of a single invocation.
	Handler = handler.Handler

	// InvocationContext immutably describes one unit of work.
	InvocationContext = runtimeapi.InvocationContext

	// Diagnostic is the wire representation of a failed invocation.
	Diagnostic = runtimeapi.Diagnostic

	// Config is a snapshot of environment-derived settings.
	Config = runtimeapi.Config

	// Client talks to the runtime API.
	Client = runtimeapi.Client

	// Executor runs the invocation loop.
	Executor = executor.Executor
)

// Error variables
var (
	ErrMissingRequestID = runtimeapi.ErrMissingRequestID
	ErrMalformedHeader  = runtimeapi.ErrMalformedHeader
)

// Start runs the runtime with the given handler function until a fatal error
// occurs. The function may have any signature accepted by NewHandler.
func Start(fn any) error {
	h, err := handler.New(fn)
	if err != nil {
		return err
	}
	return StartHandler(h)
}

// StartHandler runs the runtime with an explicit Handler implementation. Use
// this when the handler holds state across invocations.
func StartHandler(h Handler) error {
	return StartHandlerWithContext(context.Background(), h)
}

// StartHandlerWithContext is StartHandler with a caller-owned context;
// cancelling it stops the loop between invocations.
func StartHandlerWithContext(ctx context.Context, h Handler) error {
	cfg, err := runtimeapi.ConfigFromEnv()
	if err != nil {
		return err
	}

	client := runtimeapi.NewClient(cfg.Endpoint)
	return executor.New(client, h).Run(ctx)
}

// NewHandler creates a Handler from a function via reflection. See
// handler.New for the accepted signatures.
func NewHandler(fn any) (Handler, error) {
	return handler.New(fn)
}

// Wrap adapts a typed function to the Handler interface without reflection.
func Wrap[A, B any](fn func(context.Context, A) (B, error)) Handler {
	return handler.Wrap(fn)
}

// FromContext returns the InvocationContext for the running invocation, or
// nil outside one.
func FromContext(ctx context.Context) *InvocationContext {
	return runtimeapi.FromContext(ctx)
}

// ConfigFromEnv reads runtime configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	return runtimeapi.ConfigFromEnv()
}

// DiagnosticFromError builds a Diagnostic from a handler error.
func DiagnosticFromError(err error) Diagnostic {
	return runtimeapi.DiagnosticFromError(err)
}
