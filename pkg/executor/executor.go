// Package executor owns the fetch/dispatch/report loop at the core of the
// runtime. It fetches one invocation at a time from the runtime API,
// dispatches it to the registered handler, and reports the outcome before
// fetching the next.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdziat/simple-lambda-runtime/pkg/handler"
	"github.com/jdziat/simple-lambda-runtime/pkg/runtimeapi"
)

// ConfigSource supplies the environment snapshot stamped onto each
// invocation. The default reads the process environment every iteration.
type ConfigSource func() (runtimeapi.Config, error)

// Executor runs the invocation loop. It processes invocations strictly
// sequentially: the protocol never offers a second invocation until the
// previous outcome has been reported, so the protocol itself is the
// backpressure mechanism.
type Executor struct {
	client  *runtimeapi.Client
	handler handler.Handler
	logger  *slog.Logger
	config  ConfigSource
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithConfigSource replaces the per-iteration environment snapshot source.
func WithConfigSource(src ConfigSource) Option {
	return func(e *Executor) { e.config = src }
}

// New creates an Executor dispatching to h.
func New(client *runtimeapi.Client, h handler.Handler, opts ...Option) *Executor {
	e := &Executor{
		client:  client,
		handler: h,
		logger:  slog.Default(),
		config:  runtimeapi.ConfigFromEnv,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the loop until a fatal error occurs or ctx is cancelled.
// There is no terminal state in normal operation; the loop runs for the
// lifetime of the process.
//
// Handler errors (including payload decode failures and panics) are reported
// to the event source as Diagnostics and never escape Run. Everything else -
// transport failures, protocol parse failures, report failures, an unreadable
// environment - is fatal and returned.
func (e *Executor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.runOnce(ctx); err != nil {
			return err
		}
	}
}

func (e *Executor) runOnce(ctx context.Context) error {
	ic, payload, err := e.client.NextInvocation(ctx)
	if err != nil {
		return err
	}

	// Fresh snapshot per invocation, not a cached one.
	cfg, err := e.config()
	if err != nil {
		return err
	}
	ic.Config = cfg

	start := time.Now()
	response, invokeErr := e.invoke(runtimeapi.NewContext(ctx, ic), payload)
	duration := time.Since(start)

	if invokeErr != nil {
		diag := runtimeapi.DiagnosticFromError(invokeErr)
		e.logger.Error("invocation failed",
			"request_id", ic.RequestID,
			"error_type", diag.ErrorType,
			"error", diag.ErrorMessage,
			"duration", duration)
		return e.client.ReportError(ctx, ic.RequestID, diag)
	}

	e.logger.Info("invocation completed",
		"request_id", ic.RequestID,
		"duration", duration)
	return e.client.ReportResponse(ctx, ic.RequestID, response)
}

// invoke dispatches to the handler, converting a panic into an error so a
// misbehaving handler fails its own invocation instead of the process.
func (e *Executor) invoke(ctx context.Context, payload []byte) (response []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.handler.Invoke(ctx, payload)
}
