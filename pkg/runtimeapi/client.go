package runtimeapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Doer executes a single HTTP request. Tests substitute a stub transport;
// production uses *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the runtime API. It is owned by a single executor and is
// never used concurrently; the protocol allows one invocation in flight.
type Client struct {
	endpoint string
	http     Doer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the HTTP transport.
func WithTransport(d Doer) ClientOption {
	return func(c *Client) { c.http = d }
}

// NewClient creates a client for the runtime API at the given endpoint
// (host:port as supplied by the environment, or a full URL).
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		// The next-event call blocks until work arrives, so no client timeout.
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextInvocation blocks until the event source offers an invocation, then
// returns its context and raw payload. Transport and protocol failures here
// are fatal to the caller's loop.
func (c *Client) NextInvocation(ctx context.Context) (*InvocationContext, []byte, error) {
	req, err := NewNextEventRequest(c.endpoint)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("lambda: fetch next invocation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, nil, fmt.Errorf("lambda: fetch next invocation: unexpected status %d", resp.StatusCode)
	}

	return ParseInvocation(resp)
}

// ReportResponse posts the serialized handler output for the invocation.
func (c *Client) ReportResponse(ctx context.Context, requestID string, body []byte) error {
	req, err := NewResponseRequest(c.endpoint, requestID, body)
	if err != nil {
		return err
	}
	return c.post(ctx, req, "report response")
}

// ReportError posts a Diagnostic for the invocation.
func (c *Client) ReportError(ctx context.Context, requestID string, diag Diagnostic) error {
	req, err := NewErrorRequest(c.endpoint, requestID, diag)
	if err != nil {
		return err
	}
	return c.post(ctx, req, "report error")
}

func (c *Client) post(ctx context.Context, req *http.Request, op string) error {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("lambda: %s: %w", op, err)
	}
	defer resp.Body.Close()

	// Drain so the transport can reuse the connection.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("lambda: %s: unexpected status %d", op, resp.StatusCode)
	}
	return nil
}
