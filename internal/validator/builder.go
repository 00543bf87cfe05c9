package validator

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// RawRow is one configuration record as it was read, before any defaulting or
// validation. Every field is optional; Build decides what the row means.
type RawRow struct {
	Name     string
	RPCURL   string
	Host     string
	Port     string
	Protocol string
	Location string
}

// RowError is a validation failure tied to one configuration record.
type RowError struct {
	Reason string
	Row    int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("invalid record at row %d: %s", e.Row, e.Reason)
}

func rowErrorf(row int, format string, args ...any) *RowError {
	return &RowError{Row: row, Reason: fmt.Sprintf(format, args...)}
}

// Build turns a raw configuration row into a Validator.
//
// rowNumber is the 1-based position of the row in its source and is only used
// for error reporting. ordinal is the 1-based count of rows accepted so far,
// including this one, and feeds generated names.
//
// Endpoint resolution order:
//  1. RPCURL, parsed as an absolute URL
//  2. Host (+ Port, default 8899) combined with Protocol
//  3. otherwise the row is rejected
//
// Whatever branch produced the URL, the result must use http or https, name a
// host and carry a port (DefaultRPCPort is applied when none is present).
func Build(row RawRow, rowNumber, ordinal int) (Validator, error) {
	location := strings.TrimSpace(row.Location)
	if location == "" {
		location = DefaultLocation
	}

	protocol := strings.ToLower(strings.TrimSpace(row.Protocol))
	if protocol == "" {
		protocol = "http"
	}
	if protocol != "http" && protocol != "https" {
		return Validator{}, rowErrorf(rowNumber, "unsupported protocol '%s'", protocol)
	}

	var endpoint *url.URL
	if raw := strings.TrimSpace(row.RPCURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return Validator{}, rowErrorf(rowNumber, "invalid url '%s': %v", raw, err)
		}
		if !u.IsAbs() {
			return Validator{}, rowErrorf(rowNumber, "invalid url '%s': relative URL without a base", raw)
		}
		endpoint = u
	} else if host := strings.TrimSpace(row.Host); host != "" {
		u, err := url.Parse(protocol + "://" + bracketIPv6(host))
		if err != nil {
			return Validator{}, rowErrorf(rowNumber, "invalid host '%s': %v", host, err)
		}
		if u.Port() == "" {
			port := DefaultRPCPort
			if p := strings.TrimSpace(row.Port); p != "" {
				n, err := parsePort(p)
				if err != nil {
					return Validator{}, rowErrorf(rowNumber, "invalid port '%s'", p)
				}
				port = n
			}
			setPort(u, port)
		}
		endpoint = u
	} else {
		return Validator{}, rowErrorf(rowNumber, "missing rpc_url or host/ip column")
	}

	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return Validator{}, rowErrorf(rowNumber, "unsupported url scheme '%s'", endpoint.Scheme)
	}
	if endpoint.Hostname() == "" {
		return Validator{}, rowErrorf(rowNumber, "url is missing host")
	}
	if p := endpoint.Port(); p == "" {
		setPort(endpoint, DefaultRPCPort)
	} else if _, err := parsePort(p); err != nil {
		return Validator{}, rowErrorf(rowNumber, "invalid port '%s'", p)
	}

	name := strings.TrimSpace(row.Name)
	if name == "" {
		name = GenerateName(location, ordinal)
	}

	return New(name, location, endpoint), nil
}

// GenerateName derives a display name from a location for rows without one:
// "Frankfurt 1" with ordinal 3 becomes "frankfurt-1-3". A location with no
// ASCII letters or digits falls back to "validator-<ordinal>".
func GenerateName(location string, ordinal int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(location) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}

	cleaned := strings.Trim(b.String(), "-")
	if cleaned == "" {
		return fmt.Sprintf("validator-%d", ordinal)
	}
	return fmt.Sprintf("%s-%d", cleaned, ordinal)
}

// bracketIPv6 wraps bare IPv6 literals so they can be embedded in a URL.
// Anything with a dot is assumed to be a hostname or IPv4 address (possibly
// with a port) and left untouched.
func bracketIPv6(host string) string {
	if strings.Contains(host, ":") &&
		!strings.Contains(host, ".") &&
		!strings.HasPrefix(host, "[") &&
		!strings.HasSuffix(host, "]") {
		return "[" + host + "]"
	}
	return host
}

func parsePort(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("port out of range")
	}
	return int(n), nil
}

func setPort(u *url.URL, port int) {
	u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
}
