// Package validator defines the backend node record served by the gateway and
// the builder that turns raw configuration rows into validated records.
//
// # Overview
//
// A validator is a single JSON-RPC node. The gateway knows a fixed set of them,
// loaded once at startup. Each one has a display name, a free-form location tag
// used for grouping, and an absolute http(s) endpoint that always carries an
// explicit port.
//
// # Raw rows versus validators
//
// Configuration sources produce RawRow values: every column is optional and
// nothing has been checked. Build applies the defaulting rules and either
// returns a Validator or a *RowError naming the offending row:
//
//	row := validator.RawRow{Host: "10.0.0.7", Location: "Frankfurt 1"}
//	v, err := validator.Build(row, 2, 1)
//	// v.Name() == "frankfurt-1-1"
//	// v.Endpoint().String() == "http://10.0.0.7:8899"
//
// Defaults:
//   - protocol: http
//   - port: 8899 (DefaultRPCPort)
//   - location: "unspecified" (DefaultLocation)
//   - name: derived from the location and the row ordinal
//
// # Keys
//
// Names and locations are compared through NormalizeKey only. Indexes and
// lookups must never lower-case or trim on their own.
//
// # Concurrency
//
// Validator is an immutable value type. It can be copied and read from any
// number of goroutines without synchronization.
package validator
