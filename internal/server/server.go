// Package server wires the validator registry and the forwarder into the
// gateway's HTTP surface.
package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dreamware/valgate/internal/apierror"
	"github.com/dreamware/valgate/internal/forward"
	"github.com/dreamware/valgate/internal/metrics"
	"github.com/dreamware/valgate/internal/registry"
	"github.com/dreamware/valgate/internal/validator"
)

// MaxRequestBytes caps the body a caller may send through the gateway.
const MaxRequestBytes = forward.MaxResponseBytes

// Route names used for logging and metrics.
const (
	routeHealth     = "health"
	routeValidators = "validators"
	routeInfo       = "info"
	routeMetrics    = "metrics"
	routeProxy      = "proxy"
	routeNotFound   = "not_found"
)

// Server serves the gateway API. It holds no mutable state of its own; the
// registry is shared read-only and the forwarder is safe for concurrent use.
type Server struct {
	registry  *registry.Registry
	forwarder *forward.Forwarder
	logger    *zap.Logger
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	handler   http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request and forward metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRateLimit puts a token bucket in front of the proxy route.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// New builds a Server around a loaded registry.
func New(reg *registry.Registry, fwd *forward.Forwarder, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry:  reg,
		forwarder: fwd,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.metrics.SetValidators(reg.Len())
	}

	mux := http.NewServeMux()
	mux.Handle("/health", s.route(routeHealth, http.HandlerFunc(s.handleHealth)))
	mux.Handle("/validators", s.route(routeValidators, http.HandlerFunc(s.handleValidators)))
	mux.Handle("/info", s.route(routeInfo, http.HandlerFunc(s.handleInfo)))
	if s.metrics != nil {
		mux.Handle("/metrics", s.route(routeMetrics, s.metrics.Handler()))
	}
	mux.Handle("/{$}", s.route(routeProxy, s.rateLimit(http.HandlerFunc(s.handleProxy))))
	mux.Handle("/", s.route(routeNotFound, http.HandlerFunc(s.handleNotFound)))

	s.handler = requestID(mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth reports liveness of the gateway itself, never of the validators.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	apierror.WriteJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}

// handleValidators lists every validator without its endpoint.
func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	apierror.WriteJSON(w, http.StatusOK, struct {
		Validators []validator.Summary `json:"validators"`
	}{Validators: s.registry.Summaries()})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	apierror.WriteJSON(w, http.StatusOK, infoDocument{
		Name:        "valgate",
		Description: "Single stable access point to a fleet of JSON-RPC validators. Requests are routed to a validator chosen by name, by location, or at random.",
		Usage:       "POST /?server=<name>, /?location=<region>, or / for a random validator, with a JSON-RPC body. See /validators for options.",
		Health:      "/health",
		Validators:  "/validators",
		Locations:   s.registry.Locations(),
		Example:     `curl -X POST 'http://localhost/?server=frankfurt-1' -H 'Content-Type: application/json' -d '{"jsonrpc":"2.0","id":1,"method":"getVersion","params":[]}'`,
	})
}

// handleNotFound answers every path without a route. It sits outside the
// rate limiter so stray paths never use up proxy tokens.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, apierror.Errorf(apierror.NotFound, "unknown path %s", r.URL.Path))
}

type infoDocument struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Usage       string   `json:"usage"`
	Health      string   `json:"health"`
	Validators  string   `json:"validators"`
	Example     string   `json:"example"`
	Locations   []string `json:"locations"`
}

// handleProxy selects a validator from the query hints and relays the request.
//
// Query parameters:
//   - validator (alias server): explicit validator name
//   - location (alias region): location group for a random pick
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		s.fail(w, r, apierror.Errorf(apierror.BadRequest, "invalid query string: %v", err))
		return
	}
	name := firstParam(query, "validator", "server")
	location := firstParam(query, "location", "region")

	selected, err := s.registry.Select(name, location)
	if err != nil {
		var selErr *registry.SelectionError
		if s.metrics != nil && errors.As(err, &selErr) {
			s.metrics.ObserveSelectionFailure(selectionReason(selErr.Kind))
		}
		s.fail(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, apierror.Errorf(apierror.BadRequest, "request body exceeds limit of %d bytes", tooLarge.Limit))
			return
		}
		s.fail(w, r, apierror.Errorf(apierror.BadRequest, "failed to read request body: %v", err))
		return
	}

	s.logger.Info("forwarding json-rpc request",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("validator", selected.Name()),
		zap.String("location", selected.Location()),
	)

	start := time.Now()
	resp, err := s.forwarder.Forward(r.Context(), selected, r, body)
	if s.metrics != nil {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
		}
		s.metrics.ObserveForward(selected.Name(), outcome, time.Since(start))
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		s.logger.Debug("write response", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
	}
}

// fail writes err as a JSON error with the status of its kind.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierror.Write(w, err)

	fields := []zap.Field{
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("kind", apiErr.Kind.String()),
		zap.Int("status", apiErr.Status()),
		zap.Error(err),
	}
	if apiErr.Kind == apierror.Internal || apiErr.Kind == apierror.Upstream {
		s.logger.Warn("request failed", fields...)
		return
	}
	s.logger.Debug("request rejected", fields...)
}

func (s *Server) allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.fail(w, r, apierror.Errorf(apierror.BadMethod, "method not allowed"))
	return false
}

// firstParam returns the first non-blank value of the primary key, falling
// back to the alias.
func firstParam(q url.Values, key, alias string) string {
	if v := strings.TrimSpace(q.Get(key)); v != "" {
		return v
	}
	return strings.TrimSpace(q.Get(alias))
}

func selectionReason(k registry.SelectionKind) string {
	switch k {
	case registry.UnknownValidator:
		return "unknown_validator"
	case registry.UnknownLocation:
		return "unknown_location"
	default:
		return "empty"
	}
}
