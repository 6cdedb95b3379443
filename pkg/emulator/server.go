// Package emulator provides a local runtime API endpoint for development and
// testing. It serves the same three routes a function sees in production, so
// a handler built on this module can be exercised end to end on a laptop:
// events are enqueued (directly or from cron-driven event sources), handed to
// the polling runtime one at a time, and their outcomes recorded in an
// optional sqlite journal.
package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-lambda-runtime/pkg/runtimeapi"
)

// ErrUnknownInvocation is returned when an outcome is reported or awaited for
// an id the server never issued.
var ErrUnknownInvocation = errors.New("emulator: unknown invocation id")

// Outcome is the reported result of one invocation.
type Outcome struct {
	// Response is the handler output when the invocation succeeded.
	Response []byte
	// Diagnostic is set when the invocation failed.
	Diagnostic *runtimeapi.Diagnostic
}

// Success reports whether the invocation completed without error.
func (o Outcome) Success() bool { return o.Diagnostic == nil }

type invocation struct {
	id        string
	payload   []byte
	done      chan Outcome
	delivered bool
}

// Server implements the runtime API against an in-memory event queue.
// The next-invocation route long-polls until an event is available, which
// preserves the production property that at most one invocation is in flight.
type Server struct {
	functionName string
	version      string
	memoryMB     int
	timeout      time.Duration
	logger       *slog.Logger
	journal      *Journal

	queue chan *invocation

	mu          sync.Mutex
	invocations map[string]*invocation
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithFunction sets the function name and version advertised to the runtime.
func WithFunction(name, version string) ServerOption {
	return func(s *Server) {
		s.functionName = name
		s.version = version
	}
}

// WithMemory sets the advertised memory size in MB.
func WithMemory(mb int) ServerOption {
	return func(s *Server) { s.memoryMB = mb }
}

// WithTimeout sets the invocation deadline offset.
func WithTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

// WithJournal records every invocation and outcome in the given journal.
func WithJournal(j *Journal) ServerOption {
	return func(s *Server) { s.journal = j }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an emulator server.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		functionName: "function",
		version:      "$LATEST",
		memoryMB:     128,
		timeout:      30 * time.Second,
		logger:       slog.Default(),
		queue:        make(chan *invocation, 64),
		invocations:  make(map[string]*invocation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue adds an event for the function and returns its request id.
func (s *Server) Enqueue(ctx context.Context, payload []byte) (string, error) {
	inv := &invocation{
		id:      uuid.New().String(),
		payload: payload,
		done:    make(chan Outcome, 1),
	}

	if s.journal != nil {
		if err := s.journal.Record(ctx, inv.id, payload); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	s.invocations[inv.id] = inv
	s.mu.Unlock()

	select {
	case s.queue <- inv:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	s.logger.Debug("event enqueued", "request_id", inv.id)
	return inv.id, nil
}

// Wait blocks until the invocation's outcome has been reported.
func (s *Server) Wait(ctx context.Context, requestID string) (Outcome, error) {
	s.mu.Lock()
	inv, ok := s.invocations[requestID]
	s.mu.Unlock()
	if !ok {
		return Outcome{}, ErrUnknownInvocation
	}

	select {
	case outcome := <-inv.done:
		s.mu.Lock()
		delete(s.invocations, requestID)
		s.mu.Unlock()
		return outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Environ returns the AWS_LAMBDA_* environment for a function run against
// this emulator at addr, mirroring what the production environment sets.
func (s *Server) Environ(addr string) []string {
	return []string{
		runtimeapi.EnvRuntimeAPI + "=" + addr,
		runtimeapi.EnvFunctionName + "=" + s.functionName,
		runtimeapi.EnvMemorySize + "=" + strconv.Itoa(s.memoryMB),
		runtimeapi.EnvVersion + "=" + s.version,
		runtimeapi.EnvLogStreamName + "=local",
		runtimeapi.EnvLogGroupName + "=/local/" + s.functionName,
	}
}

// Handler returns the http.Handler serving the runtime API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	prefix := "/" + runtimeapi.APIVersion + "/runtime/invocation"
	mux.HandleFunc("GET "+prefix+"/next", s.handleNext)
	mux.HandleFunc("POST "+prefix+"/{id}/response", s.handleResponse)
	mux.HandleFunc("POST "+prefix+"/{id}/error", s.handleError)
	return mux
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	var inv *invocation
	select {
	case inv = <-s.queue:
	case <-r.Context().Done():
		// Client gave up while long-polling.
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	deadline := time.Now().Add(s.timeout)
	arn := fmt.Sprintf("arn:aws:lambda:local:000000000000:function:%s", s.functionName)
	if s.version != "" && s.version != "$LATEST" {
		arn += ":" + s.version
	}

	w.Header().Set(runtimeapi.HeaderRequestID, inv.id)
	w.Header().Set(runtimeapi.HeaderDeadlineMS, strconv.FormatInt(deadline.UnixMilli(), 10))
	w.Header().Set(runtimeapi.HeaderFunctionARN, arn)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(inv.payload)

	s.logger.Debug("invocation handed to runtime", "request_id", inv.id)
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.deliver(r, requestID, Outcome{Response: body}); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Info("invocation completed", "request_id", requestID)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	var diag runtimeapi.Diagnostic
	if err := json.NewDecoder(r.Body).Decode(&diag); err != nil {
		http.Error(w, fmt.Sprintf("decode diagnostic: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.deliver(r, requestID, Outcome{Diagnostic: &diag}); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Info("invocation failed", "request_id", requestID, "error_type", diag.ErrorType)
	w.WriteHeader(http.StatusAccepted)
}

// deliver records the outcome and wakes the waiter, if any. The outcome is
// buffered on the invocation so a Wait that arrives after the report still
// observes it.
func (s *Server) deliver(r *http.Request, requestID string, outcome Outcome) error {
	s.mu.Lock()
	inv, ok := s.invocations[requestID]
	already := ok && inv.delivered
	if ok {
		inv.delivered = true
	}
	s.mu.Unlock()

	if !ok || already {
		return ErrUnknownInvocation
	}

	if s.journal != nil {
		var err error
		if outcome.Success() {
			err = s.journal.Complete(r.Context(), requestID, outcome.Response)
		} else {
			err = s.journal.Fail(r.Context(), requestID, *outcome.Diagnostic)
		}
		if err != nil {
			s.logger.Error("journal write failed", "request_id", requestID, "error", err)
		}
	}

	inv.done <- outcome
	return nil
}
