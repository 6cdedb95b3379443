package runtimeapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport records requests and replays canned responses.
type stubTransport struct {
	requests  []*http.Request
	bodies    []string
	responses []*http.Response
	errs      []error
}

func (s *stubTransport) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	s.requests = append(s.requests, req)
	s.bodies = append(s.bodies, body)

	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.responses[i], nil
}

func accepted() *http.Response {
	return &http.Response{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestClient_NextInvocation(t *testing.T) {
	transport := &stubTransport{
		responses: []*http.Response{
			nextEventResponse(map[string]string{HeaderRequestID: "abc-123"}, `"hello"`),
		},
	}
	client := NewClient("127.0.0.1:9001", WithTransport(transport))

	ic, payload, err := client.NextInvocation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "abc-123", ic.RequestID)
	assert.Equal(t, `"hello"`, string(payload))

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "/2018-06-01/runtime/invocation/next", transport.requests[0].URL.Path)
}

func TestClient_NextInvocation_TransportError(t *testing.T) {
	connRefused := errors.New("connection refused")
	transport := &stubTransport{errs: []error{connRefused}}
	client := NewClient("127.0.0.1:9001", WithTransport(transport))

	_, _, err := client.NextInvocation(context.Background())
	assert.ErrorIs(t, err, connRefused)
}

func TestClient_NextInvocation_BadStatus(t *testing.T) {
	transport := &stubTransport{
		responses: []*http.Response{{
			StatusCode: http.StatusInternalServerError,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		}},
	}
	client := NewClient("127.0.0.1:9001", WithTransport(transport))

	_, _, err := client.NextInvocation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_ReportResponse(t *testing.T) {
	transport := &stubTransport{responses: []*http.Response{accepted()}}
	client := NewClient("127.0.0.1:9001", WithTransport(transport))

	err := client.ReportResponse(context.Background(), "abc-123", []byte(`"hello"`))
	require.NoError(t, err)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "/2018-06-01/runtime/invocation/abc-123/response", transport.requests[0].URL.Path)
	assert.Equal(t, `"hello"`, transport.bodies[0])
}

func TestClient_ReportError(t *testing.T) {
	transport := &stubTransport{responses: []*http.Response{accepted()}}
	client := NewClient("127.0.0.1:9001", WithTransport(transport))

	err := client.ReportError(context.Background(), "abc-123", Diagnostic{
		ErrorMessage: "boom",
		ErrorType:    "*errors.errorString",
	})
	require.NoError(t, err)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "/2018-06-01/runtime/invocation/abc-123/error", transport.requests[0].URL.Path)
	assert.JSONEq(t, `{"errorMessage":"boom","errorType":"*errors.errorString"}`, transport.bodies[0])
}

func TestClient_ReportResponse_BadStatusIsError(t *testing.T) {
	transport := &stubTransport{
		responses: []*http.Response{{
			StatusCode: http.StatusBadRequest,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		}},
	}
	client := NewClient("127.0.0.1:9001", WithTransport(transport))

	err := client.ReportResponse(context.Background(), "abc-123", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
