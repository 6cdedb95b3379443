// Package handler provides the handler abstraction dispatched by the runtime executor.
//
// A Handler receives the raw JSON payload of one invocation and returns the
// raw JSON response. Two adapters turn ordinary functions into Handlers:
//   - Wrap, a generic adapter for func(ctx, A) (B, error)
//   - New, a reflection-based adapter accepting a family of signatures
//
// Most users should import the root package github.com/jdziat/simple-lambda-runtime
// which re-exports these.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Handler processes the payload of a single invocation.
//
// Implementations may keep internal state across calls (connection pools,
// caches); the executor invokes the same Handler value for the lifetime of
// the process, one invocation at a time.
type Handler interface {
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

// Func adapts a typed function to the Handler interface. The payload is
// JSON-decoded into A before the call and the result is JSON-encoded from B
// after it. A payload that does not decode into A fails that invocation only;
// it is reported like any other handler error.
type Func[A, B any] struct {
	fn func(context.Context, A) (B, error)
}

// Wrap returns a Handler backed by the given function.
func Wrap[A, B any](fn func(context.Context, A) (B, error)) *Func[A, B] {
	return &Func[A, B]{fn: fn}
}

// Invoke implements Handler.
func (h *Func[A, B]) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	var event A
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	response, err := h.fn(ctx, event)
	if err != nil {
		return nil, err
	}

	return json.Marshal(response)
}

// reflectHandler dispatches to an arbitrary function via reflection.
type reflectHandler struct {
	fn         reflect.Value
	eventType  reflect.Type
	hasContext bool
	returnsVal bool
}

// New creates a Handler from a function.
// The function must have one of the signatures:
//
//	func ()
//	func (A)
//	func (context.Context)
//	func (context.Context, A)
//
// returning error or (B, error), where A is JSON-decodable and B is
// JSON-encodable.
func New(fn any) (Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)

	// Check for typed nil (e.g., var fn func() error = nil)
	if !fnVal.IsValid() || (fnVal.Kind() == reflect.Func && fnVal.IsNil()) {
		return nil, fmt.Errorf("handler function cannot be nil")
	}

	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function")
	}

	h := &reflectHandler{fn: fnVal}

	// Parse function signature
	numIn := fnType.NumIn()
	if numIn > 2 {
		return nil, fmt.Errorf("handler must have 0-2 arguments")
	}

	argIdx := 0
	if numIn > 0 && fnType.In(0).Implements(reflect.TypeOf((*context.Context)(nil)).Elem()) {
		h.hasContext = true
		argIdx = 1
	}

	if numIn == 2 && !h.hasContext {
		return nil, fmt.Errorf("handler with two arguments must take context.Context first")
	}

	if argIdx < numIn {
		h.eventType = fnType.In(argIdx)
	}

	// Validate return type - allow error or (B, error)
	errType := reflect.TypeOf((*error)(nil)).Elem()
	switch fnType.NumOut() {
	case 1:
		if !fnType.Out(0).Implements(errType) {
			return nil, fmt.Errorf("handler must return error")
		}
	case 2:
		if !fnType.Out(1).Implements(errType) {
			return nil, fmt.Errorf("handler must return (B, error)")
		}
		h.returnsVal = true
	default:
		return nil, fmt.Errorf("handler must return error or (B, error)")
	}

	return h, nil
}

// Invoke implements Handler.
func (h *reflectHandler) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	var args []reflect.Value

	if h.hasContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	if h.eventType != nil {
		eventVal := reflect.New(h.eventType)
		if err := json.Unmarshal(payload, eventVal.Interface()); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		args = append(args, eventVal.Elem())
	}

	results := h.fn.Call(args)

	if errVal := results[len(results)-1]; !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}

	if !h.returnsVal {
		return jsonNull, nil
	}

	return json.Marshal(results[0].Interface())
}

// jsonNull is the response body for handlers that return no value.
var jsonNull = []byte("null")
