// Package apierror maps gateway failures to HTTP responses.
//
// Every error leaving an HTTP handler goes through Write, which renders
// {"error": "<message>"} with the status of the error's Kind:
//
//	BadRequest  → 400  caller sent something unusable
//	Selection   → 400  no validator matches the name/location hints
//	NotFound    → 404  no route for the path
//	BadMethod   → 405  route exists, method does not
//	RateLimited → 429  the gateway's token bucket is empty
//	Upstream    → 502  the selected validator failed
//	Internal    → 500  anything unexpected
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dreamware/valgate/internal/forward"
	"github.com/dreamware/valgate/internal/registry"
)

// Kind classifies an Error.
type Kind int

const (
	Internal Kind = iota
	BadRequest
	Selection
	Upstream
	RateLimited
	NotFound
	BadMethod
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Selection:
		return "selection"
	case Upstream:
		return "upstream"
	case RateLimited:
		return "rate_limited"
	case NotFound:
		return "not_found"
	case BadMethod:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case BadRequest, Selection:
		return http.StatusBadRequest
	case Upstream:
		return http.StatusBadGateway
	case RateLimited:
		return http.StatusTooManyRequests
	case NotFound:
		return http.StatusNotFound
	case BadMethod:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure that knows how it should be reported to the caller.
type Error struct {
	Err  error
	Kind Kind
}

// New wraps err with the given kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf formats a message and wraps it with the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch e.Kind {
	case Selection:
		return "validator selection failed: " + e.Err.Error()
	case Upstream:
		return "upstream request failed: " + e.Err.Error()
	case Internal:
		return "internal error: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for e.
func (e *Error) Status() int { return e.Kind.Status() }

// From classifies err. Errors that already are *Error are returned as is;
// selection and upstream failures get their kinds; everything else is Internal.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var selErr *registry.SelectionError
	if errors.As(err, &selErr) {
		return New(Selection, err)
	}

	var upErr *forward.UpstreamError
	if errors.As(err, &upErr) {
		return New(Upstream, err)
	}

	return New(Internal, err)
}

// Body is the JSON shape of every error response.
type Body struct {
	Error string `json:"error"`
}

// Write renders err as a JSON error response and returns the classified error.
func Write(w http.ResponseWriter, err error) *Error {
	apiErr := From(err)
	WriteJSON(w, apiErr.Status(), Body{Error: apiErr.Error()})
	return apiErr
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
