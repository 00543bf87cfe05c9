// Package forward relays one HTTP request to a selected validator and buffers
// its response.
package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreamware/valgate/internal/validator"
)

const (
	// MaxResponseBytes caps the upstream response body (32 MiB).
	MaxResponseBytes = 32 << 20

	// DefaultTimeout bounds the whole round trip: connect, send, headers and body.
	DefaultTimeout = 15 * time.Second
)

// hopHeaders are connection-scoped and never forwarded.
// Accept-Encoding is dropped so the transport negotiates compression and
// decodes the body itself; only Content-Type is relayed back to the caller.
var hopHeaders = []string{
	"Accept-Encoding",
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// UpstreamError reports any failure while talking to a validator: transport
// errors, timeouts, read errors and oversized bodies alike.
type UpstreamError struct {
	Err       error
	Validator string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("node '%s' is unavailable: %v", e.Validator, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Response is the buffered upstream reply.
type Response struct {
	ContentType string
	Body        []byte
	StatusCode  int
}

// Forwarder sends requests to validators. It is safe for concurrent use; the
// underlying http.Client pools connections per validator.
type Forwarder struct {
	client  *http.Client
	maxBody int64
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithTimeout sets the per-request round-trip timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithTransport replaces the HTTP transport, e.g. with an httptest server's.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Forwarder) {
		f.client.Transport = rt
	}
}

// WithMaxResponseBytes overrides MaxResponseBytes.
func WithMaxResponseBytes(n int64) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// New creates a Forwarder with DefaultTimeout and MaxResponseBytes unless
// overridden. Redirects are relayed to the caller, not followed.
func New(opts ...Option) *Forwarder {
	f := &Forwarder{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBody: MaxResponseBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Timeout returns the configured round-trip timeout.
func (f *Forwarder) Timeout() time.Duration {
	return f.client.Timeout
}

// Forward relays in to v and returns the buffered response.
//
// The outbound request keeps the inbound method, headers and body; only the
// Host header is rewritten to the validator endpoint. The request is sent
// exactly once. Every failure after the request is built is returned as an
// *UpstreamError naming the validator.
func (f *Forwarder) Forward(ctx context.Context, v validator.Validator, in *http.Request, body []byte) (*Response, error) {
	out, err := http.NewRequestWithContext(ctx, in.Method, v.Endpoint().String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", v.Name(), err)
	}

	out.Header = in.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	out.Host = v.HostHeader()
	out.ContentLength = int64(len(body))

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, &UpstreamError{Validator: v.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.ContentLength > f.maxBody {
		return nil, &UpstreamError{Validator: v.Name(), Err: errBodyTooLarge(f.maxBody)}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &UpstreamError{Validator: v.Name(), Err: err}
	}
	if int64(len(payload)) > f.maxBody {
		return nil, &UpstreamError{Validator: v.Name(), Err: errBodyTooLarge(f.maxBody)}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}

func errBodyTooLarge(limit int64) error {
	return fmt.Errorf("response body exceeds limit of %d bytes", limit)
}
