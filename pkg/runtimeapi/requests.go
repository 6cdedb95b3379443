package runtimeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIVersion is the runtime API version the paths below are pinned to.
const APIVersion = "2018-06-01"

// Headers carried on the next-event response.
const (
	HeaderRequestID       = "Lambda-Runtime-Aws-Request-Id"
	HeaderDeadlineMS      = "Lambda-Runtime-Deadline-Ms"
	HeaderFunctionARN     = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderTraceID         = "Lambda-Runtime-Trace-Id"
	HeaderClientContext   = "Lambda-Runtime-Client-Context"
	HeaderCognitoIdentity = "Lambda-Runtime-Cognito-Identity"
)

// Protocol errors
var (
	ErrMissingRequestID = errors.New("lambda: next-event response missing " + HeaderRequestID + " header")
	ErrMalformedHeader  = errors.New("lambda: malformed next-event response header")
)

// baseURL normalizes the configured endpoint into an absolute URL prefix.
// The environment supplies a bare host:port.
func baseURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/")
	}
	return "http://" + strings.TrimSuffix(endpoint, "/")
}

// NewNextEventRequest builds the GET request that fetches the next
// invocation. It performs no I/O and only fails on a malformed endpoint.
func NewNextEventRequest(endpoint string) (*http.Request, error) {
	url := fmt.Sprintf("%s/%s/runtime/invocation/next", baseURL(endpoint), APIVersion)
	return http.NewRequest(http.MethodGet, url, nil)
}

// NewResponseRequest builds the POST request that reports a successful
// invocation, with the serialized handler output as body.
func NewResponseRequest(endpoint, requestID string, body []byte) (*http.Request, error) {
	url := fmt.Sprintf("%s/%s/runtime/invocation/%s/response", baseURL(endpoint), APIVersion, requestID)
	return http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
}

// NewErrorRequest builds the POST request that reports a failed invocation,
// with the JSON-encoded Diagnostic as body.
func NewErrorRequest(endpoint, requestID string, diag Diagnostic) (*http.Request, error) {
	body, err := json.Marshal(diag)
	if err != nil {
		return nil, fmt.Errorf("lambda: marshal diagnostic: %w", err)
	}

	url := fmt.Sprintf("%s/%s/runtime/invocation/%s/error", baseURL(endpoint), APIVersion, requestID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ParseInvocation extracts the InvocationContext from a next-event response
// and returns the response body as the invocation payload. The request id
// header is required; the remaining headers default to empty when absent.
// The caller owns closing resp.Body.
func ParseInvocation(resp *http.Response) (*InvocationContext, []byte, error) {
	requestID := resp.Header.Get(HeaderRequestID)
	if requestID == "" {
		return nil, nil, ErrMissingRequestID
	}

	ic := &InvocationContext{
		RequestID:          requestID,
		InvokedFunctionARN: resp.Header.Get(HeaderFunctionARN),
		TraceID:            resp.Header.Get(HeaderTraceID),
		ClientContext:      resp.Header.Get(HeaderClientContext),
		CognitoIdentity:    resp.Header.Get(HeaderCognitoIdentity),
	}

	if deadline := resp.Header.Get(HeaderDeadlineMS); deadline != "" {
		ms, err := strconv.ParseInt(deadline, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s=%q", ErrMalformedHeader, HeaderDeadlineMS, deadline)
		}
		ic.Deadline = time.UnixMilli(ms)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("lambda: read invocation payload: %w", err)
	}

	return ic, payload, nil
}
