package validator

import (
	"net/url"
	"strings"
)

// DefaultRPCPort is applied to every endpoint that does not carry an explicit port.
const DefaultRPCPort = 8899

// DefaultLocation is used for rows that leave the location column empty.
const DefaultLocation = "unspecified"

// Validator is one backend RPC node the gateway can forward requests to.
//
// A Validator is an immutable value: its fields are unexported and the
// endpoint is copied on every access, so a Validator handed out by the
// registry can be shared freely between goroutines.
//
// Invariants (enforced by Build):
//   - name is non-empty after trimming
//   - endpoint scheme is "http" or "https"
//   - endpoint has a host and an explicit port
type Validator struct {
	endpoint url.URL
	name     string
	location string
}

// New creates a Validator from already validated parts.
// Build is the entry point for untrusted configuration rows; New is used by
// Build and by callers that construct validators programmatically (tests,
// embedded deployments).
func New(name, location string, endpoint *url.URL) Validator {
	return Validator{
		name:     name,
		location: location,
		endpoint: *endpoint,
	}
}

// Name returns the display name exactly as configured.
func (v Validator) Name() string { return v.name }

// Location returns the location tag exactly as configured.
func (v Validator) Location() string { return v.location }

// Endpoint returns a copy of the validator's RPC endpoint.
func (v Validator) Endpoint() *url.URL {
	u := v.endpoint
	return &u
}

// HostHeader returns the value for the Host header of requests sent to this
// validator: the endpoint host, plus the port unless it is the scheme default.
func (v Validator) HostHeader() string {
	port := v.endpoint.Port()
	if port == "" || port == defaultSchemePort(v.endpoint.Scheme) {
		host := v.endpoint.Hostname()
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return v.endpoint.Host
}

// Summary is the public projection of a Validator used for discovery.
// It deliberately omits the endpoint.
type Summary struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Summary returns the discovery projection of v.
func (v Validator) Summary() Summary {
	return Summary{Name: v.name, Location: v.location}
}

// NormalizeKey is the single normalization used for every name and location
// comparison: surrounding whitespace removed, then lower-cased.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func defaultSchemePort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}
