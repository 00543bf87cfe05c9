package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildEndpoint covers every endpoint resolution branch and checks that the
// resulting URL always carries a scheme, a host and a port.
func TestBuildEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		row      RawRow
		endpoint string
	}{
		{
			name:     "explicit url with port",
			row:      RawRow{Name: "a", RPCURL: "http://10.0.0.1:9000"},
			endpoint: "http://10.0.0.1:9000",
		},
		{
			name:     "explicit scheme default port is kept",
			row:      RawRow{Name: "a", RPCURL: "http://h:80"},
			endpoint: "http://h:80",
		},
		{
			name:     "explicit https default port is kept",
			row:      RawRow{Name: "a", RPCURL: "https://rpc.example.com:443"},
			endpoint: "https://rpc.example.com:443",
		},
		{
			name:     "explicit url without port gets default",
			row:      RawRow{Name: "a", RPCURL: "https://rpc.example.com"},
			endpoint: "https://rpc.example.com:8899",
		},
		{
			name:     "explicit url keeps path",
			row:      RawRow{Name: "a", RPCURL: "  http://rpc.example.com:8080/solana  "},
			endpoint: "http://rpc.example.com:8080/solana",
		},
		{
			name:     "explicit url wins over host",
			row:      RawRow{Name: "a", RPCURL: "http://1.1.1.1:1", Host: "2.2.2.2"},
			endpoint: "http://1.1.1.1:1",
		},
		{
			name:     "host with default protocol and port",
			row:      RawRow{Name: "a", Host: "10.0.0.2"},
			endpoint: "http://10.0.0.2:8899",
		},
		{
			name:     "host with explicit port column",
			row:      RawRow{Name: "a", Host: "10.0.0.2", Port: "9999"},
			endpoint: "http://10.0.0.2:9999",
		},
		{
			name:     "host with protocol column",
			row:      RawRow{Name: "a", Host: "node.example.com", Protocol: " HTTPS "},
			endpoint: "https://node.example.com:8899",
		},
		{
			name:     "host that already has a port ignores port column",
			row:      RawRow{Name: "a", Host: "10.0.0.3:7000", Port: "9999"},
			endpoint: "http://10.0.0.3:7000",
		},
		{
			name:     "bare ipv6 literal is bracketed",
			row:      RawRow{Name: "a", Host: "2001:db8::1"},
			endpoint: "http://[2001:db8::1]:8899",
		},
		{
			name:     "bracketed ipv6 literal is kept",
			row:      RawRow{Name: "a", Host: "[::1]", Port: "8080"},
			endpoint: "http://[::1]:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Build(tt.row, 2, 1)
			require.NoError(t, err)

			ep := v.Endpoint()
			assert.Equal(t, tt.endpoint, ep.String())
			assert.Contains(t, []string{"http", "https"}, ep.Scheme)
			assert.NotEmpty(t, ep.Hostname())
			assert.NotEmpty(t, ep.Port())
		})
	}
}

// TestBuildRejectsInvalidRows verifies that every rejection is a RowError that
// names the source row.
func TestBuildRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name   string
		row    RawRow
		reason string
	}{
		{
			name:   "no endpoint information",
			row:    RawRow{Name: "a", Location: "lab"},
			reason: "missing rpc_url or host/ip column",
		},
		{
			name:   "blank endpoint information",
			row:    RawRow{Name: "a", RPCURL: "   ", Host: " "},
			reason: "missing rpc_url or host/ip column",
		},
		{
			name:   "unsupported protocol",
			row:    RawRow{Name: "a", Host: "10.0.0.1", Protocol: "ws"},
			reason: "unsupported protocol 'ws'",
		},
		{
			name:   "unsupported url scheme",
			row:    RawRow{Name: "a", RPCURL: "ftp://10.0.0.1"},
			reason: "unsupported url scheme 'ftp'",
		},
		{
			name:   "relative url",
			row:    RawRow{Name: "a", RPCURL: "rpc.example.com/path"},
			reason: "invalid url 'rpc.example.com/path': relative URL without a base",
		},
		{
			name:   "url without host",
			row:    RawRow{Name: "a", RPCURL: "http://:8899"},
			reason: "url is missing host",
		},
		{
			name:   "non numeric port",
			row:    RawRow{Name: "a", Host: "10.0.0.1", Port: "eighty"},
			reason: "invalid port 'eighty'",
		},
		{
			name:   "port out of range",
			row:    RawRow{Name: "a", RPCURL: "http://10.0.0.1:70000"},
			reason: "invalid port '70000'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.row, 7, 1)
			require.Error(t, err)

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 7, rowErr.Row)
			assert.Equal(t, tt.reason, rowErr.Reason)
			assert.Contains(t, err.Error(), "row 7")
		})
	}
}

func TestBuildInvalidURLReportsParseError(t *testing.T) {
	_, err := Build(RawRow{RPCURL: "http://bad host"}, 3, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record at row 3: invalid url 'http://bad host'")
}

func TestBuildNameAndLocation(t *testing.T) {
	tests := []struct {
		name     string
		row      RawRow
		ordinal  int
		wantName string
		wantLoc  string
	}{
		{
			name:     "explicit name is trimmed but otherwise verbatim",
			row:      RawRow{Name: "  Frankfurt-Main ", Host: "10.0.0.1", Location: "Frankfurt"},
			ordinal:  1,
			wantName: "Frankfurt-Main",
			wantLoc:  "Frankfurt",
		},
		{
			name:     "generated from location",
			row:      RawRow{Host: "10.0.0.1", Location: "Frankfurt 1"},
			ordinal:  3,
			wantName: "frankfurt-1-3",
			wantLoc:  "Frankfurt 1",
		},
		{
			name:     "missing location defaults to unspecified",
			row:      RawRow{Host: "10.0.0.1"},
			ordinal:  2,
			wantName: "unspecified-2",
			wantLoc:  "unspecified",
		},
		{
			name:     "location without alphanumerics",
			row:      RawRow{Host: "10.0.0.1", Location: "!!! ---"},
			ordinal:  1,
			wantName: "validator-1",
			wantLoc:  "!!! ---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Build(tt.row, 2, tt.ordinal)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, v.Name())
			assert.Equal(t, tt.wantLoc, v.Location())
		})
	}
}

func TestGenerateName(t *testing.T) {
	assert.Equal(t, "frankfurt-1-3", GenerateName("Frankfurt 1", 3))
	assert.Equal(t, "validator-1", GenerateName("", 1))
	assert.Equal(t, "validator-4", GenerateName("  ", 4))
	assert.Equal(t, "us-east--1-5", GenerateName("US East (1)", 5))
	assert.Equal(t, "s-o-paulo-2", GenerateName("São Paulo", 2))
}

// TestBuildKeepsExplicitDefaultPort pins that a port equal to the scheme
// default is kept in the endpoint and only dropped from the Host header.
func TestBuildKeepsExplicitDefaultPort(t *testing.T) {
	v, err := Build(RawRow{Name: "a", RPCURL: "http://h:80"}, 2, 1)
	require.NoError(t, err)

	ep := v.Endpoint()
	assert.Equal(t, "http://h:80", ep.String())
	assert.Equal(t, "80", ep.Port())
	assert.Equal(t, "h", v.HostHeader())
}
